package storage

import "fmt"

// PostProcess resolves the foreign keys action_event rows only learned the
// timestamp of at write time (screenshot_id, window_event_id,
// browser_event_id). No writer sets browser_event_timestamp, so for rows
// inserted through InsertActionEvent browser_event_id stays NULL. It must
// run exactly once, after every writer for
// recordingID has drained — resolving before a sibling table has finished
// writing its rows would leave some events permanently unlinked, since this
// pass does not run again.
//
// For each action event carrying a screenshot/window/browser timestamp, the
// match is the row in that table with the largest timestamp not exceeding
// the action event's recorded timestamp, matching how the event was
// decorated against "the most recent capture so far" at route time.
func (s *Store) PostProcess(recordingID int64) error {
	if err := s.linkNearest(recordingID, "screenshot_id", "screenshot_timestamp", "screenshot"); err != nil {
		return err
	}
	if err := s.linkNearest(recordingID, "window_event_id", "window_event_timestamp", "window_event"); err != nil {
		return err
	}
	if err := s.linkNearest(recordingID, "browser_event_id", "browser_event_timestamp", "browser_event"); err != nil {
		return err
	}
	return nil
}

func (s *Store) linkNearest(recordingID int64, fkColumn, tsColumn, table string) error {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT id, %s FROM action_event WHERE recording_id = ? AND %s IS NOT NULL AND %s IS NULL`, tsColumn, tsColumn, fkColumn),
		recordingID,
	)
	if err != nil {
		return fmt.Errorf("storage: postprocess select action_event for %s: %w", table, err)
	}

	type pending struct {
		id int64
		ts float64
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.ts); err != nil {
			rows.Close()
			return fmt.Errorf("storage: postprocess scan: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	stmt, err := s.db.Prepare(
		fmt.Sprintf(`SELECT id FROM %s WHERE recording_id = ? AND timestamp <= ? ORDER BY timestamp DESC LIMIT 1`, table),
	)
	if err != nil {
		return fmt.Errorf("storage: prepare nearest-%s lookup: %w", table, err)
	}
	defer stmt.Close()

	update, err := s.db.Prepare(fmt.Sprintf(`UPDATE action_event SET %s = ? WHERE id = ?`, fkColumn))
	if err != nil {
		return fmt.Errorf("storage: prepare %s update: %w", fkColumn, err)
	}
	defer update.Close()

	for _, p := range todo {
		var matchID int64
		if err := stmt.QueryRow(recordingID, p.ts).Scan(&matchID); err != nil {
			continue // no matching row at or before this timestamp; leave unlinked
		}
		if _, err := update.Exec(matchID, p.id); err != nil {
			return fmt.Errorf("storage: postprocess update %s: %w", fkColumn, err)
		}
	}
	return nil
}
