package history

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Handler serves the store as JSON. Without a pid query parameter it lists the
// PIDs with history; with one it returns their points, optionally limited to
// the last "since" duration (for example since=5m).
func Handler(s *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("pid") == "" {
			writeJSON(w, map[string][]int{"pids": s.PIDs()})
			return
		}
		pid, err := strconv.Atoi(q.Get("pid"))
		if err != nil || pid <= 0 {
			http.Error(w, fmt.Sprintf("invalid pid %q", q.Get("pid")), http.StatusBadRequest)
			return
		}
		var since time.Time
		if v := q.Get("since"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				http.Error(w, fmt.Sprintf("invalid since %q", v), http.StatusBadRequest)
				return
			}
			since = time.Now().Add(-d)
		}
		writeJSON(w, s.Fetch(pid, since))
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("JSON error: %v", err), http.StatusInternalServerError)
	}
}
