// api/acs/client.go
package acs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	logger "github.com/labops/labportal/api/logging"
)

// Consumer is a person record in the access-control database.
type Consumer struct {
	ID            int64  `json:"id"`
	Number        string `json:"number"`
	Name          string `json:"name"`
	CardNo        string `json:"card_no,omitempty"`
	Department    string `json:"department,omitempty"`
	PrivilegeType string `json:"privilege_type,omitempty"`
}

// Client talks to the external access-control SQL Server instance via
// stored procedures.
type Client struct {
	db *sql.DB
}

func NewClient(dsn string) (*Client, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open access-control connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Exec runs a stored procedure and returns its integer return status.
// A connection failure yields CodeConnectionFailed so callers can map
// it distinctly from logical stored-procedure failures.
func (c *Client) Exec(ctx context.Context, proc string, args ...interface{}) (int, error) {
	start := time.Now()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.db.PingContext(pingCtx); err != nil {
		logger.Error("Access-control database unreachable", zap.Error(err), zap.String("proc", proc))
		return CodeConnectionFailed, fmt.Errorf("access-control connection failed: %w", err)
	}

	var rs mssql.ReturnStatus
	params := append(append([]interface{}{}, args...), &rs)
	if _, err := c.db.ExecContext(ctx, proc, params...); err != nil {
		logger.Error("Stored procedure execution failed",
			zap.Error(err),
			zap.String("proc", proc),
			zap.Duration("duration", time.Since(start)))
		return CodeInternalError, fmt.Errorf("stored procedure %s failed: %w", proc, err)
	}

	logger.Debug("Stored procedure executed",
		zap.String("proc", proc),
		zap.Int("returnStatus", int(rs)),
		zap.Duration("duration", time.Since(start)))
	return int(rs), nil
}

// DeleteConsumer removes a person from the access-control database by
// their person number.
func (c *Client) DeleteConsumer(ctx context.Context, consumerNo string) (int, error) {
	return c.Exec(ctx, "sp_wg2014_ConsumerDelete", sql.Named("ConsumerNO", consumerNo))
}

// ListConsumers returns person records, optionally filtered by a name
// substring.
func (c *Client) ListConsumers(ctx context.Context, nameFilter string) ([]Consumer, error) {
	query := `
	SELECT c.f_ConsumerID, c.f_ConsumerNO, c.f_ConsumerName,
	       COALESCE(c.f_CardNO, '') AS CardNO,
	       COALESCE(g.f_GroupName, '') AS DepartmentName,
	       COALESCE(pt.f_PrivilegeTypeName, '') AS PrivilegeType
	FROM t_b_Consumer c
	LEFT JOIN t_b_Group g ON c.f_GroupID = g.f_GroupID
	LEFT JOIN t_d_PrivilegeType pt ON c.f_PrivilegeTypeID = pt.f_PrivilegeTypeID`

	var args []interface{}
	if nameFilter != "" {
		query += " WHERE c.f_ConsumerName LIKE @name"
		args = append(args, sql.Named("name", "%"+nameFilter+"%"))
	}
	query += " ORDER BY c.f_ConsumerNO ASC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list access-control consumers: %w", err)
	}
	defer rows.Close()

	var consumers []Consumer
	for rows.Next() {
		var consumer Consumer
		if err := rows.Scan(&consumer.ID, &consumer.Number, &consumer.Name,
			&consumer.CardNo, &consumer.Department, &consumer.PrivilegeType); err != nil {
			return nil, fmt.Errorf("failed to scan consumer row: %w", err)
		}
		consumers = append(consumers, consumer)
	}
	return consumers, rows.Err()
}
