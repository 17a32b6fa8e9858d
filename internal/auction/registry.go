package auction

import (
	"context"
	"sync/atomic"
	"time"

	"auctionex.com/internal/auction/repo"
	"auctionex.com/pkg/logger"
	"auctionex.com/pkg/metrics"
	"auctionex.com/pkg/ratelimit"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// pendingDeposit 批量挂单时预留、尚未提交的押金
type pendingDeposit struct {
	amount   uint64
	deadline time.Time
}

// Registry 固定的一组拍卖行总账，显式构造、显式持有，没有全局单例。
// 同时承担经济计算（押金/抽成）、押金预留和查询节流。
type Registry struct {
	conf    HouseConf
	eco     *Economics
	ledgers map[HouseID]*Ledger
	hooks   *HookList

	// pending 玩家 guid -> 未提交押金
	pending map[uint64][]pendingDeposit

	throttleNormal *ratelimit.Store
	throttleBot    *ratelimit.Store

	templates TemplateStore
	nextID    uint64
}

func NewRegistry(conf HouseConf, r repo.AuctionRepo, mail MailSink, templates TemplateStore) *Registry {
	conf = conf.withDefaults()
	eco := DefaultEconomics()
	eco.DefaultCutRate = decimal.New(int64(conf.CutRatePct), -2)
	eco.CutRate[HouseGoblin] = decimal.New(int64(conf.GoblinCutRatePct), -2)

	reg := &Registry{
		conf:      conf,
		eco:       eco,
		templates: templates,
		ledgers:   make(map[HouseID]*Ledger, 4),
		hooks:     &HookList{},
		pending:   make(map[uint64][]pendingDeposit),
		throttleNormal: ratelimit.NewStore(
			rate.Limit(float64(conf.QueryPerMinute)/60.0), conf.QueryPerMinute,
			time.Duration(conf.QueryMinDelayMs)*time.Millisecond, 10*time.Minute),
		throttleBot: ratelimit.NewStore(
			rate.Limit(float64(conf.BotQueryPerMinute)/60.0), conf.BotQueryPerMinute,
			time.Duration(conf.BotQueryMinDelayMs)*time.Millisecond, 10*time.Minute),
	}

	newID := reg.allocateID
	for _, id := range []HouseID{HouseAlliance, HouseHorde, HouseNeutral, HouseGoblin} {
		reg.ledgers[id] = NewLedger(id, eco, r, mail, reg.hooks, templates, newID)
	}
	return reg
}

func (r *Registry) allocateID() uint64 {
	return atomic.AddUint64(&r.nextID, 1)
}

// Templates 模板库（只读，外部系统提供）
func (r *Registry) Templates() TemplateStore { return r.templates }

// RegisterObserver 注册脚本扩展点观察者（启动期调用）
func (r *Registry) RegisterObserver(o Observer) {
	r.hooks.Register(o)
}

// Ledger 按行号取总账，未知行号返回 nil
func (r *Registry) Ledger(id HouseID) *Ledger {
	return r.ledgers[id]
}

// LedgerForFaction 按阵营路由
func (r *Registry) LedgerForFaction(f Faction) *Ledger {
	switch f {
	case FactionAlliance:
		return r.ledgers[HouseAlliance]
	case FactionHorde:
		return r.ledgers[HouseHorde]
	default:
		return r.ledgers[HouseNeutral]
	}
}

// Deposit 押金，见 Economics.Deposit
func (r *Registry) Deposit(sellPrice uint64, quantity uint32, duration time.Duration) uint64 {
	return r.eco.Deposit(sellPrice, quantity, duration)
}

// Cut 抽成，见 Economics.Cut
func (r *Registry) Cut(houseID HouseID, finalPrice uint64) uint64 {
	return r.eco.Cut(houseID, finalPrice)
}

// ReserveDeposit 为一批挂单中的一条预留押金，等整批一起校验提交
func (r *Registry) ReserveDeposit(player uint64, amount uint64, now time.Time) {
	r.pending[player] = append(r.pending[player], pendingDeposit{
		amount:   amount,
		deadline: now.Add(time.Duration(r.conf.PendingDepositSeconds) * time.Second),
	})
}

// CommitDeposits 整批押金一起校验：总额超出玩家可用资金则一条都不收，
// 预留保持原样等过期。成功时清空预留并返回应扣总额。
func (r *Registry) CommitDeposits(player uint64, funds uint64) (uint64, bool) {
	var total uint64
	for _, p := range r.pending[player] {
		total += p.amount
	}
	if total > funds {
		return 0, false
	}
	delete(r.pending, player)
	return total, true
}

// PendingDepositTotal 当前预留总额，测试与查询用
func (r *Registry) PendingDepositTotal(player uint64) uint64 {
	var total uint64
	for _, p := range r.pending[player] {
		total += p.amount
	}
	return total
}

// ThrottleQuery 查询节流：普通与自动化客户端各一套配额
func (r *Registry) ThrottleQuery(player uint64, automated bool) (bool, time.Duration) {
	store := r.throttleNormal
	if automated {
		store = r.throttleBot
	}
	ok, retry := store.Allow(player)
	if !ok {
		metrics.ThrottleBlockTotal.WithLabelValues("query").Inc()
	}
	return ok, retry
}

// Update 周期驱动：过期押金预留丢弃，节流表清理，再逐行结算。
// 单个行的提交失败只影响该行本 tick 的结算，下个 tick 重试。
func (r *Registry) Update(ctx context.Context, now time.Time) {
	start := time.Now()

	for player, list := range r.pending {
		kept := list[:0]
		for _, p := range list {
			if now.Before(p.deadline) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(r.pending, player)
		} else {
			r.pending[player] = kept
		}
	}

	r.throttleNormal.Prune(now)
	r.throttleBot.Prune(now)

	window := r.conf.Tick()
	for _, ledger := range r.ledgers {
		if err := ledger.Update(ctx, now, window); err != nil {
			logger.Error(ctx, "ledger tick failed",
				zap.Uint8("house", uint8(ledger.HouseID())), zap.Error(err))
		}
	}

	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// Rehydrate 启动时从持久层重建全部总账，完成前不应对外服务。
// 已经过期的挂单留给第一个 tick 正常结算。
func (r *Registry) Rehydrate(ctx context.Context, ar repo.AuctionRepo, templates TemplateStore) error {
	rows, itemRows, bidderRows, err := ar.LoadAll(ctx)
	if err != nil {
		return err
	}

	// 拆摞铸出的物品 guid 和拍卖 id 共用一个分配器，
	// 水位线要盖过两个序列里已持久化的最大值
	var maxID uint64
	itemsByAuction := make(map[uint64][]*Item, len(rows))
	for i := range itemRows {
		ir := &itemRows[i]
		if ir.ItemGuid > maxID {
			maxID = ir.ItemGuid
		}
		tmpl := templates.Template(ir.ItemID)
		if tmpl == nil {
			logger.Warn(ctx, "auction item with unknown template skipped",
				zap.Uint64("auction", ir.AuctionID), zap.Uint32("item", ir.ItemID))
			continue
		}
		itemsByAuction[ir.AuctionID] = append(itemsByAuction[ir.AuctionID], &Item{
			Guid:         ir.ItemGuid,
			Template:     tmpl,
			Count:        ir.Count,
			ItemLevel:    ir.ItemLevel,
			SuffixID:     ir.SuffixID,
			PetSpeciesID: ir.PetSpeciesID,
			PetLevel:     ir.PetLevel,
			AppearanceID: ir.AppearanceID,
			BonusListIDs: splitBonusIDs(ir.BonusListIDs),
		})
	}
	biddersByAuction := make(map[uint64]map[uint64]struct{})
	for _, br := range bidderRows {
		m, ok := biddersByAuction[br.AuctionID]
		if !ok {
			m = make(map[uint64]struct{}, 2)
			biddersByAuction[br.AuctionID] = m
		}
		m[br.Bidder] = struct{}{}
	}

	loaded := 0
	for i := range rows {
		row := &rows[i]
		ledger := r.ledgers[HouseID(row.HouseID)]
		if ledger == nil {
			logger.Warn(ctx, "auction row with unknown house skipped",
				zap.Uint64("auction", row.ID), zap.Uint8("house", row.HouseID))
			continue
		}
		items := itemsByAuction[row.ID]
		if len(items) == 0 {
			logger.Warn(ctx, "auction row without items skipped", zap.Uint64("auction", row.ID))
			continue
		}
		listing := &Listing{
			ID:                row.ID,
			Seller:            PlayerRef{Guid: row.Owner, Account: row.OwnerAccount},
			Bidder:            row.Bidder,
			BidderHistory:     biddersByAuction[row.ID],
			Items:             items,
			MinBid:            row.MinBid,
			BidAmount:         row.BidAmount,
			BuyoutOrUnitPrice: row.BuyoutOrUnitPrice,
			Deposit:           row.Deposit,
			StartTime:         time.Unix(row.StartTime, 0),
			EndTime:           time.Unix(row.EndTime, 0),
			Flags:             ListingFlags(row.Flags),
		}
		ledger.insertMem(listing)
		if row.ID > maxID {
			maxID = row.ID
		}
		loaded++
	}
	atomic.StoreUint64(&r.nextID, maxID)

	logger.Info(ctx, "auction houses rehydrated",
		zap.Int("listings", loaded), zap.Uint64("max_id", maxID))
	return nil
}
