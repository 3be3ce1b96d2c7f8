package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sunplot/internal/backend"
	"sunplot/internal/daytime"
)

// telemetryReport is the inverter push payload. PAC and DAY_ENERGY are
// pointers so a missing group can be told apart from an empty one.
type telemetryReport struct {
	Head struct {
		Timestamp string `json:"Timestamp"`
	} `json:"Head"`
	Body struct {
		PAC       *readingGroup `json:"PAC"`
		DayEnergy *readingGroup `json:"DAY_ENERGY"`
	} `json:"Body"`
}

// readingGroup maps sensor IDs to readings; multi-inverter sites report
// several values per group.
type readingGroup struct {
	Values map[string]float64 `json:"Values"`
}

func (g *readingGroup) sum() float64 {
	var total float64
	for _, v := range g.Values {
		total += v
	}
	return total
}

func (s *SolarService) handleChart(w http.ResponseWriter, r *http.Request) {
	payload, err := s.ChartPNG(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to render chart")
		http.Error(w, "Error querying backend", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Expires", s.now().Add(s.cacheTTL).UTC().Format(http.TimeFormat))
	w.Write(payload)
}

func (s *SolarService) handleIngest(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("api_key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
		http.Error(w, "Unauthorised", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Malformed data", http.StatusBadRequest)
		return
	}

	var report telemetryReport
	if err := json.Unmarshal(body, &report); err != nil {
		http.Error(w, "Malformed data", http.StatusBadRequest)
		return
	}

	ts, err := time.Parse(time.RFC3339, report.Head.Timestamp)
	if err != nil || report.Body.PAC == nil || report.Body.PAC.Values == nil ||
		report.Body.DayEnergy == nil || report.Body.DayEnergy.Values == nil {
		http.Error(w, "Malformed data", http.StatusBadRequest)
		return
	}

	point := backend.Point{
		Time:      ts,
		Power:     report.Body.PAC.sum(),
		DayEnergy: report.Body.DayEnergy.sum(),
	}
	if err := s.backend.Write(r.Context(), point); err != nil {
		s.logger.WithError(err).Error("Failed to submit telemetry")
		http.Error(w, "Error submitting to VM", http.StatusInternalServerError)
		return
	}

	io.WriteString(w, "Ok\n")
}

func (s *SolarService) handleUntilDaytime(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	zone, err := daytime.LoadZone(vars["region"], vars["city"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error",
			"reason": "Invalid Timezone",
		})
		return
	}

	var seconds int64
	if wait, isDaytime := daytime.UntilDaytime(s.now(), zone); !isDaytime {
		seconds = int64(wait.Seconds())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"seconds": seconds,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "ok\n")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
