package db

import (
	"encoding/json"
	"fmt"

	"tachyon/constellation/internal/constellation"
)

// scanNode decodes the payload column of a nodes row
func scanNode(scanner interface{ Scan(dest ...any) error }) (constellation.Node, error) {
	var payload string
	if err := scanner.Scan(&payload); err != nil {
		return constellation.Node{}, err
	}
	var n constellation.Node
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return constellation.Node{}, fmt.Errorf("decoding node: %w", err)
	}
	return n, nil
}

// SaveNodes replaces the stored constellation of the current session
func (d *DB) SaveNodes(nodes []constellation.Node) error {
	s, err := d.EnsureSession()
	if err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM nodes WHERE session_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO nodes (session_id, id, parent_id, level, branch_type, label, is_expanded, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encoding node %d: %w", n.ID, err)
		}
		if _, err := stmt.Exec(s.ID, n.ID, n.ParentID, n.Level, string(n.BranchType), n.Label, n.IsExpanded, string(payload)); err != nil {
			return fmt.Errorf("inserting node %d: %w", n.ID, err)
		}
	}
	if _, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, nowMillis(), s.ID); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return tx.Commit()
}

// LoadNodes returns the stored constellation ordered by id
func (d *DB) LoadNodes() ([]constellation.Node, error) {
	rows, err := d.conn.Query(`
		SELECT n.payload
		FROM nodes n JOIN sessions s ON s.id = n.session_id
		ORDER BY n.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []constellation.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// CountNodes returns how many nodes are stored per level
func (d *DB) CountNodes() (map[int]int, error) {
	rows, err := d.conn.Query(`SELECT level, COUNT(*) FROM nodes GROUP BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var level, count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		out[level] = count
	}
	return out, rows.Err()
}
