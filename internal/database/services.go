package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/herald-dns/herald/internal/dnssd"
)

// txtSeparator joins TXT entries for storage. PutService refuses entries
// that contain it, so the encoding is unambiguous.
const txtSeparator = "\n"

// ListServices returns all persisted services ordered by name.
func (db *DB) ListServices(ctx context.Context) ([]*dnssd.Service, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, instance_name, type, port, priority, weight, txt
		 FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var out []*dnssd.Service
	for rows.Next() {
		svc := &dnssd.Service{}
		var txt string
		if err := rows.Scan(&svc.Name, &svc.InstanceName, &svc.Type,
			&svc.Port, &svc.Priority, &svc.Weight, &txt); err != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", err)
		}
		if txt != "" {
			svc.TXT = strings.Split(txt, txtSeparator)
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// GetService returns one persisted service, or nil when absent.
func (db *DB) GetService(ctx context.Context, name string) (*dnssd.Service, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	svc := &dnssd.Service{}
	var txt string
	err := db.conn.QueryRowContext(ctx,
		`SELECT name, instance_name, type, port, priority, weight, txt
		 FROM services WHERE name = ?`, name).
		Scan(&svc.Name, &svc.InstanceName, &svc.Type, &svc.Port, &svc.Priority, &svc.Weight, &txt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service %q: %w", name, err)
	}
	if txt != "" {
		svc.TXT = strings.Split(txt, txtSeparator)
	}
	return svc, nil
}

// PutService inserts or replaces a persisted service.
func (db *DB) PutService(ctx context.Context, svc *dnssd.Service) error {
	for _, e := range svc.TXT {
		if strings.Contains(e, txtSeparator) {
			return fmt.Errorf("failed to store service %q: TXT entry contains a newline", svc.Name)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO services (name, instance_name, type, port, priority, weight, txt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   instance_name = excluded.instance_name,
		   type = excluded.type,
		   port = excluded.port,
		   priority = excluded.priority,
		   weight = excluded.weight,
		   txt = excluded.txt`,
		svc.Name, svc.InstanceName, svc.Type, svc.Port, svc.Priority, svc.Weight,
		strings.Join(svc.TXT, txtSeparator))
	if err != nil {
		return fmt.Errorf("failed to store service %q: %w", svc.Name, err)
	}
	return nil
}

// DeleteService removes a persisted service. Returns whether a row existed.
func (db *DB) DeleteService(ctx context.Context, name string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM services WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete service %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
