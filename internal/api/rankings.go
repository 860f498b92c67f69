package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"shoprank/internal/batch"
	"shoprank/internal/ranking"
)

type rankedProductResponse struct {
	Rank      int         `json:"rank"`
	ProductID int64       `json:"productId"`
	Score     json.Number `json:"score"`
}

type rankingsResponse struct {
	Period   string                  `json:"period"`
	Page     int                     `json:"page"`
	Size     int                     `json:"size"`
	HasNext  bool                    `json:"hasNext"`
	Rankings []rankedProductResponse `json:"rankings"`
}

// handleGetRankings serves one page of a ranking. The period parameter is
// lenient: anything unrecognized falls back to HOURLY. The date parameter
// selects the base date of a materialized ranking; the live periods always
// resolve against "now" and ignore it.
func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	period := ranking.ParsePeriod(r.URL.Query().Get("period"))
	page, size := parsePageSize(r)

	at := time.Now()
	if v := r.URL.Query().Get("date"); v != "" && !period.Live() {
		d, err := batch.ParseBaseDate(v, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDateFormat, "date must be yyyyMMdd")
			return
		}
		at = d
	}

	rows, hasNext, err := s.ranks.FindTopNAt(r.Context(), period, at, page, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to load ranking")
		return
	}

	rankings := make([]rankedProductResponse, len(rows))
	for i, row := range rows {
		rankings[i] = rankedProductResponse{
			Rank:      row.Rank,
			ProductID: row.ProductID,
			Score:     json.Number(row.Score.StringFixed(2)),
		}
	}
	json.NewEncoder(w).Encode(rankingsResponse{
		Period:   period.String(),
		Page:     page,
		Size:     size,
		HasNext:  hasNext,
		Rankings: rankings,
	})
}

type weightResponse struct {
	ViewWeight  json.Number `json:"viewWeight"`
	LikeWeight  json.Number `json:"likeWeight"`
	OrderWeight json.Number `json:"orderWeight"`
}

func toWeightResponse(weights ranking.Weights) weightResponse {
	return weightResponse{
		ViewWeight:  json.Number(weights.View.StringFixed(2)),
		LikeWeight:  json.Number(weights.Like.StringFixed(2)),
		OrderWeight: json.Number(weights.Order.StringFixed(2)),
	}
}

// handleGetWeight returns the active weights, falling back to the defaults
// when no row has ever been saved.
func (s *Server) handleGetWeight(w http.ResponseWriter, r *http.Request) {
	weights, ok, err := s.weights.LatestWeights(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to load weights")
		return
	}
	if !ok {
		weights = ranking.DefaultWeights()
	}
	json.NewEncoder(w).Encode(toWeightResponse(weights))
}

// decimalField accepts a weight given either as a JSON number or as a
// quoted decimal string.
type decimalField string

func (d *decimalField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalField(s)
		return nil
	}
	*d = decimalField(b)
	return nil
}

func (s *Server) handlePutWeight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ViewWeight  decimalField `json:"viewWeight"`
		LikeWeight  decimalField `json:"likeWeight"`
		OrderWeight decimalField `json:"orderWeight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	weights, err := ranking.ParseWeights(string(body.ViewWeight), string(body.LikeWeight), string(body.OrderWeight))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.weights.SaveWeights(r.Context(), weights); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to save weights")
		return
	}
	json.NewEncoder(w).Encode(toWeightResponse(weights))
}

// handleRebuildRanking triggers a weekly or monthly rebuild synchronously
// and returns the execution record.
func (s *Server) handleRebuildRanking(w http.ResponseWriter, r *http.Request) {
	period, err := ranking.ParsePeriodStrict(mux.Vars(r)["period"])
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPeriod, "period must be weekly or monthly")
		return
	}
	job, err := s.jobs.ForPeriod(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPeriod, "period must be weekly or monthly")
		return
	}

	// baseDate comes from the JSON body; an empty body means today.
	var body struct {
		BaseDate string `json:"baseDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	baseDate, err := batch.ParseBaseDate(body.BaseDate, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDateFormat, "baseDate must be yyyyMMdd")
		return
	}

	exec, err := s.launcher.Run(r.Context(), job, batch.ParamsFor(baseDate, now))
	if errors.Is(err, batch.ErrJobAlreadyRunning) {
		writeError(w, http.StatusConflict, codeJobAlreadyRunning, job.Name()+" is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, exec.ExitDescription)
		return
	}
	json.NewEncoder(w).Encode(exec)
}
