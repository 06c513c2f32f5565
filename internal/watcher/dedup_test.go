package watcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func buyEvent(jetton, txID string, fidelity Fidelity) BuyEvent {
	return BuyEvent{
		Pool:      TrackedPool{JettonAddress: jetton, TokenSymbol: "TOK"},
		TxID:      txID,
		TONAmount: 1,
		Timestamp: time.Now(),
		Fidelity:  fidelity,
	}
}

func TestAdmitFirstSighting(t *testing.T) {
	d := NewDeduplicator(16, time.Minute)

	assert.Equal(t, DecisionNew, d.Admit(buyEvent("EQa", "tx1", FidelityHeuristic)))
	assert.Equal(t, DecisionNew, d.Admit(buyEvent("EQa", "tx2", FidelityTrace)))
}

func TestAdmitNeverYieldsTwoNew(t *testing.T) {
	fidelities := []Fidelity{FidelityHeuristic, FidelityTrace}
	for _, f1 := range fidelities {
		for _, f2 := range fidelities {
			d := NewDeduplicator(16, time.Minute)
			first := d.Admit(buyEvent("EQa", "tx", f1))
			second := d.Admit(buyEvent("EQa", "tx", f2))
			assert.Equal(t, DecisionNew, first)
			assert.NotEqual(t, DecisionNew, second, "f1=%v f2=%v", f1, f2)
		}
	}
}

func TestAdmitUpgradeOnHigherFidelity(t *testing.T) {
	d := NewDeduplicator(16, time.Minute)

	assert.Equal(t, DecisionNew, d.Admit(buyEvent("EQa", "tx1", FidelityHeuristic)))
	assert.Equal(t, DecisionUpgrade, d.Admit(buyEvent("EQa", "tx1", FidelityTrace)))
	// Once upgraded, further trace reports are duplicates.
	assert.Equal(t, DecisionDuplicate, d.Admit(buyEvent("EQa", "tx1", FidelityTrace)))
}

func TestAdmitDuplicateOnSameOrLowerFidelity(t *testing.T) {
	d := NewDeduplicator(16, time.Minute)

	d.Admit(buyEvent("EQa", "tx1", FidelityTrace))
	assert.Equal(t, DecisionDuplicate, d.Admit(buyEvent("EQa", "tx1", FidelityTrace)))
	assert.Equal(t, DecisionDuplicate, d.Admit(buyEvent("EQa", "tx1", FidelityHeuristic)))
}

func TestAdmitTokensIsolated(t *testing.T) {
	d := NewDeduplicator(16, time.Minute)

	assert.Equal(t, DecisionNew, d.Admit(buyEvent("EQa", "tx1", FidelityHeuristic)))
	assert.Equal(t, DecisionNew, d.Admit(buyEvent("EQb", "tx1", FidelityHeuristic)))
}

func TestAdmitEvictsOldestOnOverflow(t *testing.T) {
	d := NewDeduplicator(3, time.Hour)

	for i := 0; i < 3; i++ {
		d.Admit(buyEvent("EQa", fmt.Sprintf("tx%d", i), FidelityHeuristic))
	}
	// tx3 evicts tx0.
	d.Admit(buyEvent("EQa", "tx3", FidelityHeuristic))

	assert.Equal(t, DecisionNew, d.Admit(buyEvent("EQa", "tx0", FidelityHeuristic)))
	assert.Equal(t, DecisionDuplicate, d.Admit(buyEvent("EQa", "tx3", FidelityHeuristic)))
}

func TestPasses(t *testing.T) {
	ev := BuyEvent{Pool: TrackedPool{MinBuyTON: 0.3}, TONAmount: 0.25}
	assert.False(t, Passes(ev))

	ev.TONAmount = 0.5
	assert.True(t, Passes(ev))

	ev.Pool.MinBuyTON = 0
	ev.TONAmount = 0.0001
	assert.True(t, Passes(ev))
}
