package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/leowmjw/go-neurotools/pkg/analysis"
	"github.com/leowmjw/go-neurotools/pkg/metrics"
	"github.com/leowmjw/go-neurotools/pkg/signals"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

const (
	// maxSamples bounds the length of a synthesized analog signal
	maxSamples = 10_000_000
	// maxEvents bounds the expected spikes or grid steps of one request
	maxEvents = 10_000_000
)

var errTooLarge = errors.New("request too large")

// checkWorkload rejects processes expected to draw more than maxEvents
// events or grid steps over cells trains.
func checkWorkload(spec stgen.ProcessSpec, tStop float64, cells int) error {
	workload := spec.Workload(tStop) * float64(cells)
	if !(workload <= maxEvents) {
		return fmt.Errorf("%w: about %.3g events or grid steps, limit %d", errTooLarge, workload, maxEvents)
	}
	return nil
}

// GenerateRequest asks for a list of independent trains from one process
type GenerateRequest struct {
	Process stgen.ProcessSpec `json:"process"`
	TStop   float64           `json:"t_stop" validate:"gt=0"`
	Cells   int               `json:"cells" validate:"min=1,max=10000"`
	Seed    uint64            `json:"seed"`
	// Key stores the generated list when set
	Key string `json:"key,omitempty" validate:"omitempty,max=256"`
}

// GenerateResponse carries the generated spike times per cell
type GenerateResponse struct {
	Key      string            `json:"key,omitempty"`
	TStart   float64           `json:"t_start"`
	TStop    float64           `json:"t_stop"`
	Cells    int               `json:"cells"`
	Spikes   int               `json:"spikes"`
	MeanRate float64           `json:"mean_rate"`
	Trains   map[int][]float64 `json:"trains"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var request GenerateRequest
	if !s.decodeJSON(w, r, &request) {
		return
	}

	process, err := request.Process.Process()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := checkWorkload(request.Process, request.TStop, request.Cells); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sl, err := stgen.GenerateList(stgen.NewSeeded(request.Seed), process, request.Cells, request.TStop)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := string(request.Process.Kind)
	metrics.TrainsGenerated.WithLabelValues(kind).Add(float64(sl.Len()))
	metrics.SpikesGenerated.WithLabelValues(kind).Add(float64(sl.TotalSpikes()))

	if request.Key != "" {
		if err := s.store.Put(r.Context(), request.Key, sl); err != nil {
			s.logger.Error("Failed to store spike list", "key", request.Key, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to store spike list")
			return
		}
	}

	s.logger.Info("Generated spike list", "kind", kind, "cells", sl.Len(), "spikes", sl.TotalSpikes())

	trains := make(map[int][]float64, sl.Len())
	for _, id := range sl.IDs() {
		st, _ := sl.Train(id)
		trains[id] = st.Times()
	}
	s.respondJSON(w, http.StatusOK, GenerateResponse{
		Key:      request.Key,
		TStart:   sl.TStart(),
		TStop:    sl.TStop(),
		Cells:    sl.Len(),
		Spikes:   sl.TotalSpikes(),
		MeanRate: sl.MeanRate(),
		Trains:   trains,
	})
}

// ShotNoiseRequest synthesizes shot noise driven by explicit spike times or
// by a train drawn from Process
type ShotNoiseRequest struct {
	Times   []float64          `json:"times,omitempty" validate:"required_without=Process"`
	Process *stgen.ProcessSpec `json:"process,omitempty" validate:"required_without=Times"`
	Seed    uint64             `json:"seed"`
	TStart  float64            `json:"t_start" validate:"gte=0"`
	TStop   float64            `json:"t_stop" validate:"gtfield=TStart"`
	Q       float64            `json:"q"`
	Tau     float64            `json:"tau" validate:"gt=0"`
	DT      float64            `json:"dt" validate:"gt=0"`
	// STAWindow, when positive, also returns the spike-triggered average of
	// the synthesized signal over that many ms after each spike
	STAWindow float64 `json:"sta_window,omitempty" validate:"gte=0"`
}

// ShotNoiseResponse is the sampled signal and optional spike-triggered average
type ShotNoiseResponse struct {
	DT         float64   `json:"dt"`
	TStart     float64   `json:"t_start"`
	TStop      float64   `json:"t_stop"`
	Spikes     int       `json:"spikes"`
	Mean       float64   `json:"mean"`
	Std        float64   `json:"std"`
	Values     []float64 `json:"values"`
	STA        []float64 `json:"sta,omitempty"`
	STAWindows int       `json:"sta_windows,omitempty"`
}

func (s *Server) handleShotNoise(w http.ResponseWriter, r *http.Request) {
	var request ShotNoiseRequest
	if !s.decodeJSON(w, r, &request) {
		return
	}
	if (request.TStop-request.TStart)/request.DT > maxSamples {
		s.respondError(w, http.StatusBadRequest, "too many samples requested")
		return
	}

	train, err := s.shotNoiseTrain(request)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	signal, err := stgen.ShotNoise(train, request.Q, request.Tau, request.DT, request.TStart, request.TStop)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := ShotNoiseResponse{
		DT:     signal.DT(),
		TStart: signal.TStart(),
		TStop:  signal.TStop(),
		Spikes: train.Len(),
		Mean:   signal.Mean(),
		Std:    signal.Std(),
		Values: signal.Values(),
	}
	if request.STAWindow > 0 {
		response.STA, response.STAWindows = signal.EventTriggeredAverage(train.Times(), 0, request.STAWindow)
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) shotNoiseTrain(request ShotNoiseRequest) (*signals.SpikeTrain, error) {
	if request.Process == nil {
		return signals.NewSpikeTrain(request.Times, signals.WithBounds(request.TStart, request.TStop))
	}
	process, err := request.Process.Process()
	if err != nil {
		return nil, err
	}
	if err := checkWorkload(*request.Process, request.TStop, 1); err != nil {
		return nil, err
	}
	return process.Generate(stgen.NewSeeded(request.Seed), request.TStop)
}

// CrossCorrelateRequest correlates two spike trains
type CrossCorrelateRequest struct {
	A        []float64 `json:"a" validate:"required"`
	B        []float64 `json:"b" validate:"required"`
	Lag      float64   `json:"lag" validate:"gte=0"`
	BinWidth float64   `json:"bin_width" validate:"gt=0"`
	Shuffle  bool      `json:"shuffle,omitempty"`
	NPred    int       `json:"n_pred,omitempty" validate:"gte=0,max=1000"`
	Seed     uint64    `json:"seed,omitempty"`
}

// CrossCorrelateResponse is the binned correlogram
type CrossCorrelateResponse struct {
	Lag          float64   `json:"lag"`
	Pairs        int       `json:"pairs"`
	Norm         float64   `json:"norm"`
	Centers      []float64 `json:"centers"`
	Counts       []float64 `json:"counts"`
	Coefficients []float64 `json:"coefficients"`
	Predictor    []float64 `json:"predictor,omitempty"`
}

func (s *Server) handleCrossCorrelate(w http.ResponseWriter, r *http.Request) {
	var request CrossCorrelateRequest
	if !s.decodeJSON(w, r, &request) {
		return
	}

	a, err := signals.NewSpikeTrain(request.A)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "a: "+err.Error())
		return
	}
	b, err := signals.NewSpikeTrain(request.B)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "b: "+err.Error())
		return
	}

	opts := analysis.CrossCorrelateOptions{Lag: request.Lag}
	if request.Shuffle {
		opts.Shuffle = true
		opts.NPred = request.NPred
		opts.Rng = stgen.NewSeeded(request.Seed).Rand()
	}
	cc, err := analysis.CrossCorrelate(a, b, opts)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	correlogram, err := cc.Histogram(request.BinWidth)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, CrossCorrelateResponse{
		Lag:          cc.Lag,
		Pairs:        len(cc.Diffs),
		Norm:         correlogram.Norm,
		Centers:      correlogram.Centers,
		Counts:       correlogram.Counts,
		Coefficients: correlogram.Coefficients(),
		Predictor:    correlogram.Predictor,
	})
}
