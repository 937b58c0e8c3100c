package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strings"
)

const schemaCustomCommands = `
	CREATE TABLE IF NOT EXISTS custom_commands (
		channel TEXT NOT NULL,
		name TEXT NOT NULL,
		response TEXT NOT NULL,
		PRIMARY KEY (channel, name)
	)
`

// PostgresCommands is a Commands implementation backed by a Postgres table
type PostgresCommands struct {
	pool *pgxpool.Pool
}

// NewPostgresCommands connects to the given database and ensures the custom command table exists
func NewPostgresCommands(ctx context.Context, databaseURL string) (*PostgresCommands, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaCustomCommands); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot create custom command table: %w", err)
	}
	return &PostgresCommands{pool: pool}, nil
}

func (s *PostgresCommands) Get(ctx context.Context, channel string, name string) (*CustomCommand, error) {
	command := &CustomCommand{Channel: strings.ToLower(channel), Name: strings.ToLower(name)}
	row := s.pool.QueryRow(ctx, "SELECT response FROM custom_commands WHERE channel = $1 AND name = $2", command.Channel, command.Name)
	if err := row.Scan(&command.Response); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return command, nil
}

func (s *PostgresCommands) Add(ctx context.Context, command *CustomCommand) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO custom_commands (channel, name, response) VALUES ($1, $2, $3)
		ON CONFLICT (channel, name) DO UPDATE SET response = EXCLUDED.response
	`, strings.ToLower(command.Channel), strings.ToLower(command.Name), command.Response)
	return err
}

func (s *PostgresCommands) Delete(ctx context.Context, channel string, name string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM custom_commands WHERE channel = $1 AND name = $2", strings.ToLower(channel), strings.ToLower(name))
	return err
}

func (s *PostgresCommands) List(ctx context.Context, channel string) ([]*CustomCommand, error) {
	rows, err := s.pool.Query(ctx, "SELECT channel, name, response FROM custom_commands WHERE channel = $1 ORDER BY name", strings.ToLower(channel))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	commands := make([]*CustomCommand, 0)
	for rows.Next() {
		command := &CustomCommand{}
		if err := rows.Scan(&command.Channel, &command.Name, &command.Response); err != nil {
			return nil, err
		}
		commands = append(commands, command)
	}
	return commands, rows.Err()
}

// Close releases the underlying connection pool
func (s *PostgresCommands) Close() {
	s.pool.Close()
}
