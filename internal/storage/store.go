package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vantrade/gridbot/pkg/types"
)

// TradeRecord is one append-only row of the `trades` table.
type TradeRecord struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id"`
	Pair       string    `json:"pair"`
	Side       string    `json:"side"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	Fee        float64   `json:"fee"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExecutionEvent is one row of the `execution_history` table: a record of
// every signal the engine acted on, whether filled, denied, or halted.
type ExecutionEvent struct {
	StrategyID string    `json:"strategy_id"`
	Pair       string    `json:"pair"`
	SignalKind string    `json:"signal_kind"`
	Verdict    string    `json:"verdict"`
	Timestamp  time.Time `json:"timestamp"`
}

// BacktestResultRecord is one row of the `backtest_results` table.
type BacktestResultRecord struct {
	StrategyID  string    `json:"strategy_id"`
	Pair        string    `json:"pair"`
	TotalReturn float64   `json:"total_return"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	MaxDrawdown float64   `json:"max_drawdown"`
	TradeCount  int       `json:"trade_count"`
	WinRate     float64   `json:"win_rate"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is a minimal file-backed relational store standing in for the
// out-of-scope database, with one JSON file per table under dir and an
// append-only `trades` log. It keeps no in-memory index: every call
// reloads the table from disk and queries scan it linearly, so concurrent
// CLI invocations observe each other's writes (the persistence layer is out of scope; this
// realization favors simplicity over throughput).
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(table string) string {
	return filepath.Join(s.dir, table+".json")
}

// SaveStrategy persists a named strategy's StrategyFile under the
// `strategies` table, keyed by strategyID.
func (s *Store) SaveStrategy(strategyID string, sf StrategyFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	strategies, err := s.loadStrategies()
	if err != nil {
		return err
	}
	strategies[strategyID] = sf
	return s.saveStrategies(strategies)
}

// LoadStrategy retrieves a previously saved strategy by id.
func (s *Store) LoadStrategy(strategyID string) (StrategyFile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strategies, err := s.loadStrategies()
	if err != nil {
		return StrategyFile{}, false, err
	}
	sf, ok := strategies[strategyID]
	return sf, ok, nil
}

// ListStrategies returns every persisted strategy, keyed by id.
func (s *Store) ListStrategies() (map[string]StrategyFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStrategies()
}

func (s *Store) loadStrategies() (map[string]StrategyFile, error) {
	strategies := make(map[string]StrategyFile)
	data, err := os.ReadFile(s.path("strategies"))
	if os.IsNotExist(err) {
		return strategies, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read strategies table: %w", err)
	}
	if err := json.Unmarshal(data, &strategies); err != nil {
		return nil, fmt.Errorf("parse strategies table: %w", err)
	}
	return strategies, nil
}

func (s *Store) saveStrategies(strategies map[string]StrategyFile) error {
	data, err := json.MarshalIndent(strategies, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal strategies table: %w", err)
	}
	return atomicWrite(s.path("strategies"), data)
}

// AppendTrade appends a trade row to the append-only `trades` table.
func (s *Store) AppendTrade(trade TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades, err := s.loadTrades()
	if err != nil {
		return err
	}
	trades = append(trades, trade)
	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trades table: %w", err)
	}
	return atomicWrite(s.path("trades"), data)
}

// TradesForPair returns every trade row for pair, oldest first.
func (s *Store) TradesForPair(pair string) ([]TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades, err := s.loadTrades()
	if err != nil {
		return nil, err
	}
	var out []TradeRecord
	for _, t := range trades {
		if t.Pair == pair {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) loadTrades() ([]TradeRecord, error) {
	var trades []TradeRecord
	data, err := os.ReadFile(s.path("trades"))
	if os.IsNotExist(err) {
		return trades, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read trades table: %w", err)
	}
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("parse trades table: %w", err)
	}
	return trades, nil
}

// AppendExecutionEvent appends a row to the `execution_history` table.
func (s *Store) AppendExecutionEvent(event ExecutionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.loadExecutionHistory()
	if err != nil {
		return err
	}
	events = append(events, event)
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal execution_history table: %w", err)
	}
	return atomicWrite(s.path("execution_history"), data)
}

func (s *Store) loadExecutionHistory() ([]ExecutionEvent, error) {
	var events []ExecutionEvent
	data, err := os.ReadFile(s.path("execution_history"))
	if os.IsNotExist(err) {
		return events, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read execution_history table: %w", err)
	}
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse execution_history table: %w", err)
	}
	return events, nil
}

// AppendBacktestResult appends a row to the `backtest_results` table.
func (s *Store) AppendBacktestResult(record BacktestResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadBacktestResults()
	if err != nil {
		return err
	}
	records = append(records, record)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backtest_results table: %w", err)
	}
	return atomicWrite(s.path("backtest_results"), data)
}

func (s *Store) loadBacktestResults() ([]BacktestResultRecord, error) {
	var records []BacktestResultRecord
	data, err := os.ReadFile(s.path("backtest_results"))
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backtest_results table: %w", err)
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse backtest_results table: %w", err)
	}
	return records, nil
}

// TradeRecordFromFill builds a TradeRecord from a Fill, used by the live
// engine when persisting trades.
func TradeRecordFromFill(id, strategyID, pair string, side types.Side, fill types.Fill, ts time.Time) TradeRecord {
	return TradeRecord{
		ID:         id,
		StrategyID: strategyID,
		Pair:       pair,
		Side:       string(side),
		Price:      fill.AveragePrice,
		Quantity:   fill.FilledQuantity,
		Fee:        fill.Fee,
		Timestamp:  ts,
	}
}
