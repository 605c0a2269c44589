// Package overrides persists user-adjusted node positions and the chosen
// presentation mode per plan.
//
// Overrides for a plan are stored under the key "planLayout_<planId>" as a
// JSON object mapping node ids to {"x","y"}; the presentation mode lives
// under "planLayout_mode_<planId>". Stored data that cannot be decoded is
// treated as empty and logged, never surfaced as an error.
package overrides

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

const (
	layoutKeyPrefix = "planLayout_"
	modeKeyPrefix   = "planLayout_mode_"
)

// LayoutKey returns the key holding a plan's position overrides.
func LayoutKey(planID string) string { return layoutKeyPrefix + planID }

// ModeKey returns the key holding a plan's presentation mode.
func ModeKey(planID string) string { return modeKeyPrefix + planID }

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates a KV backend by name. path is ignored for the memory backend.
func Open(backend, path string) (KV, error) {
	switch strings.ToLower(backend) {
	case "", BackendMemory:
		return NewMemoryKV(), nil
	case BackendFile:
		return NewFileKV(path)
	case BackendSQLite:
		return NewSQLiteKV(path)
	default:
		return nil, fmt.Errorf("unknown override backend %q", backend)
	}
}

// Store reads and writes per-plan overrides. Writes for the same plan are
// serialized so concurrent saves never lose entries.
type Store struct {
	kv     KV
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore wraps a backend. A nil logger discards output.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{kv: kv, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) planLock(planID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[planID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[planID] = l
	}
	return l
}

// Load returns the overrides for a plan. Missing or malformed data yields an
// empty map; backend failures are logged and also yield an empty map.
func (s *Store) Load(ctx context.Context, planID string) map[string]model.Point {
	l := s.planLock(planID)
	l.Lock()
	defer l.Unlock()
	m, err := s.read(ctx, planID)
	if err != nil {
		s.logger.Warn("overrides: read failed", "plan", planID, "error", err)
		return map[string]model.Point{}
	}
	return m
}

// read returns the stored overrides. Only backend failures are errors;
// malformed data is logged and reads as empty.
func (s *Store) read(ctx context.Context, planID string) (map[string]model.Point, error) {
	raw, ok, err := s.kv.Get(ctx, LayoutKey(planID))
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return map[string]model.Point{}, nil
	}
	m, err := decode(raw)
	if err != nil {
		s.logger.Warn("overrides: malformed layout data ignored", "plan", planID, "error", err)
		return map[string]model.Point{}, nil
	}
	return m, nil
}

// Save records one node's position, keeping every other entry of the plan.
// Nothing is written when the existing entries cannot be read.
func (s *Store) Save(ctx context.Context, planID, nodeID string, pos model.Point) error {
	if nodeID == "" {
		return fmt.Errorf("save override: empty node id")
	}
	if !finite(pos) {
		return fmt.Errorf("save override %s: non-finite position %v", nodeID, pos)
	}
	l := s.planLock(planID)
	l.Lock()
	defer l.Unlock()

	m, err := s.read(ctx, planID)
	if err != nil {
		return fmt.Errorf("save override %s: read existing: %w", nodeID, err)
	}
	m[nodeID] = pos
	raw, err := encode(m)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}
	if err := s.kv.Set(ctx, LayoutKey(planID), raw); err != nil {
		return fmt.Errorf("save override %s: %w", nodeID, err)
	}
	return nil
}

// Reset removes every override of a plan.
func (s *Store) Reset(ctx context.Context, planID string) error {
	l := s.planLock(planID)
	l.Lock()
	defer l.Unlock()
	if err := s.kv.Delete(ctx, LayoutKey(planID)); err != nil {
		return fmt.Errorf("reset overrides: %w", err)
	}
	return nil
}

// Mode returns the persisted presentation mode, or model.DefaultMode when
// nothing valid is stored.
func (s *Store) Mode(ctx context.Context, planID string) model.PresentationMode {
	raw, ok, err := s.kv.Get(ctx, ModeKey(planID))
	if err != nil {
		s.logger.Warn("overrides: read mode failed", "plan", planID, "error", err)
		return model.DefaultMode
	}
	if !ok {
		return model.DefaultMode
	}
	mode := model.PresentationMode(strings.TrimSpace(raw))
	if !mode.IsValid() {
		s.logger.Warn("overrides: unknown presentation mode ignored", "plan", planID, "mode", raw)
		return model.DefaultMode
	}
	return mode
}

// SetMode persists the presentation mode.
func (s *Store) SetMode(ctx context.Context, planID string, mode model.PresentationMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid presentation mode %q", mode)
	}
	if err := s.kv.Set(ctx, ModeKey(planID), string(mode)); err != nil {
		return fmt.Errorf("save mode: %w", err)
	}
	return nil
}

// Merge returns a copy of res with overridden positions applied. Entries for
// nodes not in the layout are ignored. Edge points attached to a moved node
// are shifted with it.
func Merge(res layout.Result, overrides map[string]model.Point) layout.Result {
	out := res.Clone()
	if len(overrides) == 0 {
		return out
	}
	delta := make(map[string]model.Point)
	for i, n := range out.Nodes {
		p, ok := overrides[n.ID]
		if !ok {
			continue
		}
		delta[n.ID] = model.Point{X: p.X - n.Position.X, Y: p.Y - n.Position.Y}
		out.Nodes[i].Position = p
	}
	for i, e := range out.Edges {
		if len(e.Points) == 0 {
			continue
		}
		if d, ok := delta[e.Source]; ok {
			out.Edges[i].Points[0].X += d.X
			out.Edges[i].Points[0].Y += d.Y
		}
		if d, ok := delta[e.Target]; ok {
			last := len(e.Points) - 1
			out.Edges[i].Points[last].X += d.X
			out.Edges[i].Points[last].Y += d.Y
		}
	}
	return out
}

type storedPoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func decode(raw string) (map[string]model.Point, error) {
	var stored map[string]storedPoint
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	out := make(map[string]model.Point, len(stored))
	for id, p := range stored {
		if p.X == nil || p.Y == nil {
			return nil, fmt.Errorf("entry %s: missing coordinate", id)
		}
		pt := model.Point{X: *p.X, Y: *p.Y}
		if !finite(pt) {
			return nil, fmt.Errorf("entry %s: non-finite coordinate", id)
		}
		out[id] = pt
	}
	return out, nil
}

// encode writes keys in sorted order, as map marshaling does.
func encode(m map[string]model.Point) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func finite(p model.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
