package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"RiskPulse/pkg/util"

	"github.com/shopspring/decimal"
)

// ScoredTransaction is the wire shape produced by the scoring service, one per transaction.
//
//	{"id":"tx-1","accountId":"acc-9","timestamp":"2025-03-01T00:10:00Z",
//	 "amount":15000,"riskScore":0.95,"reasonCodes":["geo_mismatch"],"isConfirmedFraud":true}
//
// timestamp may be RFC3339 or unix seconds/milliseconds; amount may be a JSON number or string.
type ScoredTransaction struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"accountId,omitempty"`
	Timestamp        json.RawMessage `json:"timestamp"`
	Amount           json.RawMessage `json:"amount"`
	RiskScore        *float64        `json:"riskScore"`
	ReasonCodes      []string        `json:"reasonCodes,omitempty"`
	IsConfirmedFraud *bool           `json:"isConfirmedFraud,omitempty"`
}

// DecodeScoredTransaction parses a JSON payload and normalizes it into an event.
func DecodeScoredTransaction(b []byte) (TransactionEvent, error) {
	var st ScoredTransaction
	if err := json.Unmarshal(b, &st); err != nil {
		return TransactionEvent{}, fmt.Errorf("decode scored transaction: %w", err)
	}
	return st.ToEvent()
}

// ToEvent normalizes the wire record. Only decoding problems are reported here;
// range checks belong to the engine's ingress.
func (st ScoredTransaction) ToEvent() (TransactionEvent, error) {
	ts, err := parseTimestamp(st.Timestamp)
	if err != nil {
		return TransactionEvent{}, &IngressError{EventID: st.ID, Reason: err.Error(), Err: ErrInvalidTimestamp}
	}
	amount, err := parseAmount(st.Amount)
	if err != nil {
		return TransactionEvent{}, &IngressError{EventID: st.ID, Reason: err.Error(), Err: ErrInvalidAmount}
	}
	if st.RiskScore == nil {
		return TransactionEvent{}, &IngressError{EventID: st.ID, Reason: "riskScore missing", Err: ErrInvalidScore}
	}
	codes := make([]string, 0, len(st.ReasonCodes))
	for _, c := range st.ReasonCodes {
		if c = util.NormalizeCode(c); c != "" {
			codes = append(codes, c)
		}
	}
	return TransactionEvent{
		ID:             st.ID,
		AccountID:      st.AccountID,
		Timestamp:      ts,
		Amount:         amount,
		RiskScore:      *st.RiskScore,
		ReasonCodes:    codes,
		ConfirmedFraud: st.IsConfirmedFraud,
	}, nil
}

// FromEvent builds the wire record for an event (used by archive replays and tests).
func FromEvent(e TransactionEvent) ScoredTransaction {
	score := e.RiskScore
	ts, _ := json.Marshal(e.Timestamp.UTC().Format(time.RFC3339Nano))
	return ScoredTransaction{
		ID:               e.ID,
		AccountID:        e.AccountID,
		Timestamp:        ts,
		Amount:           json.RawMessage(e.Amount.String()),
		RiskScore:        &score,
		ReasonCodes:      e.ReasonCodes,
		IsConfirmedFraud: e.ConfirmedFraud,
	}
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("timestamp missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		t, ok := util.ParseTime(s)
		if !ok {
			return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
		}
		return t.UTC(), nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("unparseable timestamp %s", raw)
	}
	return util.FromUnix(n), nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, fmt.Errorf("amount missing")
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, err
		}
	}
	// NaN/Inf never survive decimal parsing, but guard the float form explicitly.
	if f, err := strconv.ParseFloat(s, 64); err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return decimal.Decimal{}, fmt.Errorf("amount not finite")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, nil
}
