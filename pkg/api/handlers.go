package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/diff"
	"github.com/psaab/fgtconf/pkg/export"
	"github.com/psaab/fgtconf/pkg/filter"
	"github.com/psaab/fgtconf/pkg/logging"
	"github.com/psaab/fgtconf/pkg/redact"
)

// maxLoadSize bounds the body accepted by the load endpoint.
const maxLoadSize = 16 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

func queryBool(r *http.Request, name string, def bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	cfg := s.store.Active()
	resp := StatusResponse{
		Uptime:    time.Since(s.startTime).Truncate(time.Second).String(),
		Path:      s.store.Path(),
		LoadedAt:  s.store.LoadedAt().Format(time.RFC3339),
		MultiVDOM: cfg.MultiVDOM,
		VDOMs:     cfg.VDOMs.Keys(),
		Sections:  cfg.Root.Len(),
		History:   s.store.HistoryLen(),
	}
	if g, err := cfg.Root.Object("system global"); err == nil {
		if h, err := g.Param("hostname"); err == nil {
			resp.Hostname = config.Unquote(h)
		}
	}
	writeOK(w, resp)
}

// render writes a copy of the active configuration shaped by the query:
// filter, exclude (repeatable), section, redact and comments.
func (s *Server) render(r *http.Request) (string, int, error) {
	q := r.URL.Query()
	var filters []config.Filter
	if src := q.Get("filter"); src != "" {
		f, err := filter.Compile(src)
		if err != nil {
			return "", http.StatusBadRequest, err
		}
		filters = append(filters, f.Select())
	}
	exclude, err := filter.Exclude(q["exclude"]...)
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	filters = append(filters, exclude)
	if pattern := q.Get("section"); pattern != "" {
		f, err := filter.Section(pattern)
		if err != nil {
			return "", http.StatusBadRequest, err
		}
		filters = append(filters, f)
	}

	cfg, err := s.store.Active().Clone()
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	if queryBool(r, "redact", s.redactDefault) {
		redact.New(s.redact).Config(cfg)
	}

	var b strings.Builder
	if err := cfg.Write(&b, queryBool(r, "comments", true), filter.All(filters...), nil); err != nil {
		return "", http.StatusInternalServerError, err
	}
	return b.String(), http.StatusOK, nil
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	out, status, err := s.render(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeOK(w, TextOutput{Output: out})
}

func (s *Server) configExportHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Active().Clone()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if queryBool(r, "redact", s.redactDefault) {
		redact.New(s.redact).Config(cfg)
	}

	var data []byte
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		data, err = export.JSON(cfg)
	case "yaml":
		data, err = export.YAML(cfg)
	case "text":
		out, status, rerr := s.render(r)
		if rerr != nil {
			writeError(w, status, rerr.Error())
			return
		}
		data = []byte(out)
	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, TextOutput{Output: string(data)})
}

func (s *Server) configHistoryHandler(w http.ResponseWriter, _ *http.Request) {
	entries := s.store.History()
	items := make([]HistoryItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, HistoryItem{
			Index:   i + 1,
			Time:    e.Timestamp.Format(time.RFC3339),
			Comment: e.Comment,
		})
	}
	writeOK(w, items)
}

// configCompareHandler reports the changes from the nth previous commit
// (?rollback=n, default 1) to the active configuration.
func (s *Server) configCompareHandler(w http.ResponseWriter, r *http.Request) {
	n := 1
	if v := r.URL.Query().Get("rollback"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid rollback index: "+v)
			return
		}
	}
	history := s.store.History()
	if n > len(history) {
		writeError(w, http.StatusNotFound, "no such rollback: "+strconv.Itoa(n))
		return
	}
	old, err := history[n-1].Config()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	changes := diff.Tree(old, s.store.Active())
	entries := make([]ChangeEntry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, ChangeEntry{
			Op:   c.Op.String(),
			Path: strings.Join(c.Path, "/"),
			Line: c.String(),
		})
	}
	writeOK(w, entries)
}

// configLoadHandler replaces the active configuration with the posted
// text and saves it. The body is either a LoadRequest or plain text.
func (s *Server) configLoadHandler(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxLoadSize)
	var req LoadRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	} else {
		var b strings.Builder
		if _, err := b.ReadFrom(body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Config = b.String()
		req.Comment = r.URL.Query().Get("comment")
	}

	cfg, err := s.parse(req.Config)
	if err != nil {
		status := http.StatusBadRequest
		var pe *config.ParseError
		if !errors.As(err, &pe) && !errors.Is(err, config.ErrUnexpectedEOF) {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err.Error())
		return
	}
	if req.Comment == "" {
		req.Comment = "loaded via api"
	}
	s.store.Replace(cfg, req.Comment)
	if err := s.store.Save(); err != nil {
		writeError(w, http.StatusInternalServerError, "save: "+err.Error())
		return
	}
	writeOK(w, map[string]int{"history": s.store.HistoryLen()})
}

func (s *Server) parse(text string) (*config.Config, error) {
	if s.metrics != nil {
		return s.metrics.Parse(text)
	}
	return config.Parse(text)
}

// logsHandler returns the latest buffered log messages.
// Supports ?n= (default 50) and ?level= (debug, info, warn, error).
func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeError(w, http.StatusServiceUnavailable, "log buffer not available")
		return
	}
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid count: "+v)
			return
		}
	}
	level, err := parseLevel(r.URL.Query().Get("level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := s.logs.Latest(n, level)
	entries := make([]LogEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, logEntryFromRecord(rec))
	}
	writeOK(w, entries)
}

func logEntryFromRecord(rec logging.Record) LogEntry {
	return LogEntry{
		Time:    rec.Time.Format(time.RFC3339),
		Level:   strings.ToLower(rec.Level.String()),
		Message: rec.Message,
	}
}
