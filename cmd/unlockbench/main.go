package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/SubSh2004/CampusZon-sub000/config"
	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/database"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// 压测：N 个买家对同一商品各发起 DUP 次并发解锁，校验每人只扣费一次
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := repository.Migrate(db); err != nil {
		panic(err)
	}

	N := envInt("N", 1000)
	DUP := envInt("DUP", 5)
	CONC := envInt("CONC", 32)

	users := repository.NewUserRepository(db)
	items := repository.NewItemRepository(db)
	unlocks := repository.NewUnlockRepository(db)
	ledger := service.NewTokenLedger(repository.NewLedgerRepository(db))
	svc := service.NewUnlockService(db, unlocks, items, users, ledger, nil)

	ctx := context.Background()
	run := uuid.NewString()[:8]
	campus := "bench-" + run + ".edu"

	seller := model.User{ID: uuid.NewString(), Name: "seller", Email: "seller@" + campus, Password: "p", Campus: campus}
	_ = db.Create(&seller).Error
	item := model.Item{ID: uuid.NewString(), OwnerID: seller.ID, Campus: campus, Title: "bench item", Available: true, Status: model.ModerationActive}
	_ = db.Create(&item).Error

	buyers := make([]model.User, N)
	batch := 1000
	for i := 0; i < N; i++ {
		id := uuid.NewString()
		buyers[i] = model.User{ID: id, Name: "b" + id[:8], Email: id[:8] + "@" + campus, Password: "p", Campus: campus, TokenBalance: model.WholeTokens(3)}
		if (i+1)%batch == 0 {
			sub := buyers[i+1-batch : i+1]
			_ = db.Create(&sub).Error
		}
	}
	if N%batch != 0 {
		sub := buyers[N-N%batch:]
		_ = db.Create(&sub).Error
	}

	feed := make(chan int, N*DUP)
	for d := 0; d < DUP; d++ {
		for i := 0; i < N; i++ {
			feed <- i
		}
	}
	close(feed)

	var charged, replayed, failed atomic.Int64
	lat := make(chan time.Duration, N*DUP)
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				b := buyers[i]
				caller := service.Caller{ID: b.ID, Email: b.Email, Campus: b.Campus}
				st := time.Now()
				res, err := svc.Unlock(ctx, caller, item.ID)
				lat <- time.Since(st)
				switch {
				case err != nil:
					failed.Add(1)
					if errcode.KindOf(err) == errcode.KindInternal {
						fmt.Fprintf(os.Stderr, "unlock: %v\n", err)
					}
				case res.Charged:
					charged.Add(1)
				default:
					replayed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)
	close(lat)
	recs := make([]time.Duration, 0, N*DUP)
	for d := range lat {
		recs = append(recs, d)
	}

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}

	var debits int64
	db.Model(&model.LedgerEntry{}).
		Where("reason = ? AND ref_id = ?", model.ReasonUnlock, item.ID).
		Count(&debits)

	fmt.Printf("N=%d, DUP=%d, CONC=%d\n", N, DUP, CONC)
	fmt.Printf("Unlock total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(len(recs)), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("charged=%d replayed=%d failed=%d ledger_debits=%d\n",
		charged.Load(), replayed.Load(), failed.Load(), debits)
	if debits != int64(N) || charged.Load() != int64(N) {
		fmt.Println("MISMATCH: expected exactly one debit per buyer")
		os.Exit(1)
	}
}
