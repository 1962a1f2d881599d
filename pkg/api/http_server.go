package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"simplerdb/pkg/core"
	"simplerdb/pkg/logger"
)

// Server exposes a Database over HTTP. Every handler goes through the lock
// shared with the other front ends.
type Server struct {
	db  *core.Locked
	log *zap.Logger
}

func NewServer(db *core.Locked, log *zap.Logger) *Server {
	return &Server{db: db, log: logger.OrNop(log)}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/tables", s.handleTables)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

func (s *Server) Start(addr string) error {
	s.log.Info("server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	*core.Result
	Error     string `json:"error,omitempty"`
	Category  string `json:"category,omitempty"`
	LatencyNs int64  `json:"latency_ns"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.db.ExecuteString(req.SQL)
	duration := time.Since(start)

	resp := queryResponse{Result: res, LatencyNs: duration.Nanoseconds()}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		resp.Error = err.Error()
		resp.Category = core.Category(err)
		if status == http.StatusInternalServerError {
			s.log.Error("query failed", zap.String("sql", req.SQL), zap.Error(err))
		}
	}
	writeJSON(w, status, resp)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateKey), errors.Is(err, core.ErrTableExists):
		return http.StatusConflict
	}
	switch core.Category(err) {
	case "syntax", "schema", "query":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type TableInfo struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	PrimaryKey string   `json:"primary_key"`
	Rows       int      `json:"rows"`
	Degree     int      `json:"degree"`
	Height     int      `json:"height"`
}

// ListTables describes every table in name order.
func ListTables(l *core.Locked) []TableInfo {
	tables := []TableInfo{}
	l.Do(func(db *core.Database) {
		for _, name := range db.TableNames() {
			t, err := db.Table(name)
			if err != nil {
				continue
			}
			tables = append(tables, TableInfo{
				Name:       name,
				Columns:    t.Columns(),
				PrimaryKey: t.PrimaryKey(),
				Rows:       t.Len(),
				Degree:     t.Degree(),
				Height:     t.Height(),
			})
		}
	})
	return tables
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	writeJSON(w, http.StatusOK, ListTables(s.db))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var stats map[string]interface{}
	s.db.Do(func(db *core.Database) { stats = db.Stats() })
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var stats map[string]interface{}
	s.db.Do(func(db *core.Database) { stats = db.Stats() })

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics := []struct {
		name, kind, help string
		value            interface{}
	}{
		{"simplerdb_reads_total", "counter", "Executed SELECT statements.", stats["reads"]},
		{"simplerdb_writes_total", "counter", "Executed CREATE TABLE and INSERT statements.", stats["writes"]},
		{"simplerdb_errors_total", "counter", "Statements that returned an error.", stats["errors"]},
		{"simplerdb_tables", "gauge", "Tables in the catalog.", stats["tables"]},
		{"simplerdb_rows", "gauge", "Rows across all tables.", stats["rows"]},
		{"simplerdb_rw_ratio", "gauge", "Reads per write.", stats["rw_ratio"]},
	}
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %v\n", m.name, m.value)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
