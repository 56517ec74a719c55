package sqlapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/loykin/dagdeploy/internal/common"
	"github.com/tidwall/gjson"
)

const statementsPath = "/api/v2/statements"

// statementResult is the parsed outcome of one SQL statement submission.
type statementResult struct {
	// columns maps result column names (lowercased) to their index in each row.
	columns map[string]int
	rows    []gjson.Result
}

func (r *statementResult) column(row gjson.Result, name string) string {
	idx, ok := r.columns[name]
	if !ok {
		return ""
	}
	cells := row.Array()
	if idx >= len(cells) {
		return ""
	}
	return cells[idx].String()
}

// submit posts a single SQL statement to the backend's statements endpoint
// and parses the JSON response. It is synchronous; the context bounds the
// round trip. There is no retry: a failed remote call terminates the
// invocation.
func (a *Adapter) submit(ctx context.Context, statement string) (*statementResult, error) {
	logger := common.GetLogger().WithComponent("sqlapi")
	logger.Debug("submitting statement", "statement", statement)

	body := map[string]interface{}{
		"statement": statement,
	}
	if a.cfg.Warehouse != "" {
		body["warehouse"] = a.cfg.Warehouse
	}
	if a.cfg.Database != "" {
		body["database"] = a.cfg.Database
	}
	if a.cfg.Schema != "" {
		body["schema"] = a.cfg.Schema
	}
	if a.cfg.Role != "" {
		body["role"] = a.cfg.Role
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+a.cfg.Token).
		SetHeader("X-Snowflake-Authorization-Token-Type", a.cfg.TokenType).
		SetBody(body).
		Post(statementsPath)
	if err != nil {
		return nil, fmt.Errorf("statement submission failed: %w", err)
	}

	raw := string(resp.Body())
	if resp.StatusCode() != http.StatusOK {
		msg := gjson.Get(raw, "message").String()
		if msg == "" {
			msg = resp.Status()
		}
		code := gjson.Get(raw, "code").String()
		if code != "" {
			return nil, fmt.Errorf("backend rejected statement (code %s): %s", code, msg)
		}
		return nil, fmt.Errorf("backend rejected statement: %s", msg)
	}

	result := &statementResult{columns: map[string]int{}}
	gjson.Get(raw, "resultSetMetaData.rowType.#.name").ForEach(func(i, name gjson.Result) bool {
		result.columns[strings.ToLower(name.String())] = int(i.Int())
		return true
	})
	result.rows = gjson.Get(raw, "data").Array()

	logger.Debug("statement accepted", "rows", len(result.rows))
	return result, nil
}
