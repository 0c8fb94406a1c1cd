package service

import (
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/internal/testutil"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

var admin = Actor{ID: "11111111-1111-1111-1111-111111111111", Name: "Asha", Email: "asha@kasturimasale.in"}

type recordedEvent struct {
	event   string
	payload interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	ledger  repository.LedgerRepository
	batches BatchService
	wallets WalletService
	hub     *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	ledger := repository.NewLedgerRepo(db)
	locker := lock.NewKeyedMutex()
	hub := &recorder{}

	return &fixture{
		db:      db,
		ledger:  ledger,
		batches: NewBatchService(db, repository.NewBatchRepo(db), ledger, locker, hub, ist),
		wallets: NewWalletService(db, repository.NewWalletRepo(db), ledger, locker, hub, coins.DefaultTiers()),
		hub:     hub,
	}
}

func daysAgo(n int) string {
	return time.Now().In(ist).AddDate(0, 0, -n).Format("2006-01-02")
}
