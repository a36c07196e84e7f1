package depthfeed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"depth-feed/internal/depthview"
	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
)

// BookReader provides the best levels of a symbol's book.
type BookReader interface {
	Depth(symbol string, n int) (depthview.Snapshot, bool)
}

// Broadcaster fans an encoded message out to connected clients. seq is zero
// for messages that do not change the ladder state.
type Broadcaster interface {
	Publish(seq uint64, data []byte)
}

type Config struct {
	Symbol   string
	Source   string
	Interval time.Duration
	View     depthview.Config
}

// Service drives the depth view from the order book on a fixed tick and
// publishes every change. All access to the view is serialised by mu.
type Service struct {
	cfg  Config
	book BookReader
	out  Broadcaster
	log  *logger.Entry

	mu    sync.Mutex
	view  *depthview.View
	seq   uint64
	alive bool
}

func NewService(cfg Config, book BookReader, out Broadcaster) (*Service, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be greater than 0")
	}

	view, err := depthview.New(cfg.View)
	if err != nil {
		return nil, fmt.Errorf("create depth view: %w", err)
	}

	return &Service{
		cfg:  cfg,
		book: book,
		out:  out,
		view: view,
		log:  logger.GetLogger().WithFields(logger.Fields{"component": "depthfeed", "symbol": cfg.Symbol}),
	}, nil
}

// Run ticks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.log.WithFields(logger.Fields{"interval": s.cfg.Interval.String(), "depth": s.cfg.View.Depth}).Info("depth feed started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("depth feed stopped")

			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one synchronization pass against the current book. It returns
// false when the book holds no data for the symbol.
func (s *Service) Tick() bool {
	snap, ok := s.book.Depth(s.cfg.Symbol, s.cfg.View.Depth)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.view.Update(snap)
	s.record(batch)

	if len(batch.Cells) == 0 {
		return true
	}

	s.seq++
	s.publish(s.seq, Message{Type: MsgCells, Seq: s.seq, Cells: batch.Cells})

	return true
}

// ResetDeltas clears every running delta and publishes the zeroed cells.
func (s *Service) ResetDeltas() []depthview.CellUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := s.view.ResetDeltas()
	metrics.DeltaResetsTotal.Inc()
	s.log.WithFields(logger.Fields{"cells": len(cells)}).Info("deltas reset")

	if len(cells) > 0 {
		s.seq++
		s.publish(s.seq, Message{Type: MsgCells, Seq: s.seq, Cells: cells})
	}

	return cells
}

// SetAlive records the upstream status and tells every client.
func (s *Service) SetAlive(alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alive = alive
	s.publish(0, Message{Type: MsgStatus, Status: s.status()})
}

func (s *Service) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alive
}

func (s *Service) Layout() depthview.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view.Layout()
}

// Cells returns the full current rendering and the seq it corresponds to.
func (s *Service) Cells() (uint64, []depthview.CellUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seq, s.view.Cells()
}

func (s *Service) Symbol() string {
	return s.cfg.Symbol
}

// Greeting returns the messages a newly attached client needs before live
// batches: the layout, the full cell state and the upstream status.
func (s *Service) Greeting() (uint64, [][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout := s.view.Layout()
	msgs := []Message{
		{Type: MsgLayout, Symbol: s.cfg.Symbol, Layout: &layout},
		{Type: MsgCells, Seq: s.seq, Full: true, Cells: s.view.Cells()},
		{Type: MsgStatus, Status: s.status()},
	}

	out := make([][]byte, 0, len(msgs))

	for _, msg := range msgs {
		b, err := encode(msg)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
		}

		out = append(out, b)
	}

	return s.seq, out, nil
}

func (s *Service) status() *Status {
	return &Status{Source: s.cfg.Source, Alive: s.alive}
}

func (s *Service) publish(seq uint64, msg Message) {
	b, err := encode(msg)
	if err != nil {
		s.log.WithError(err).Error("failed to encode message")

		return
	}

	s.out.Publish(seq, b)
}

func (s *Service) record(batch depthview.Batch) {
	metrics.SnapshotsTotal.Inc()
	metrics.SkippedCellsTotal.Add(float64(batch.Skipped))

	if batch.Skipped > 0 {
		s.log.WithFields(logger.Fields{"skipped": batch.Skipped}).Warn("non-finite values in snapshot")
	}

	for _, cell := range batch.Cells {
		metrics.CellUpdatesTotal.WithLabelValues(cell.Side.String(), cell.Field.String()).Inc()

		if cell.Highlight != nil {
			metrics.HighlightsTotal.Inc()
		}

		if cell.Field == depthview.FieldSpread {
			if v, err := strconv.ParseFloat(cell.Value, 64); err == nil {
				metrics.Spread.Set(v)
			}
		}
	}
}
