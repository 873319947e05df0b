package simulation

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
	"tradesim/pkg/telemetry"
)

// VenueConfig parameterizes the simulated venue.
type VenueConfig struct {
	Name                   string
	TraderID               model.TraderID
	AccountID              model.AccountID
	Currency               model.Currency
	StartingCapital        decimal.Decimal
	CommissionRateBp       decimal.Decimal
	RolloverInterestRateBp decimal.Decimal
	FrozenAccount          bool
}

// workingOrder is the venue-side state of a resting order. The venue keeps
// its own price and leaves so modifications never touch the engine's order.
type workingOrder struct {
	order            *model.Order
	brokerID         model.OrderIDBroker
	positionIDBroker model.PositionIDBroker
	side             model.OrderSide
	orderType        model.OrderType
	price            model.Price
	quantity         model.Quantity
	leaves           model.Quantity
	expireTime       *time.Time
}

// Venue is the simulated matching engine. It converts quote ticks into order
// fills, expiries, modifications and rejects per the documented matching
// policy, optionally perturbed by the fill model. Given the same seed, tick
// stream and command stream it emits an identical event stream.
type Venue struct {
	cfg         VenueConfig
	fillModel   *FillModel
	uuidFactory model.UUIDFactory
	logger      core.ILogger
	metrics     *telemetry.VenueMetrics
	handler     func(model.Event)

	connected   bool
	currentTime time.Time
	books       map[model.Symbol]model.QuoteTick
	working     map[model.Symbol][]*workingOrder

	// Bracket bookkeeping: children waiting on an entry fill, and OCO links.
	children map[model.OrderID][]*model.Order
	oco      map[model.OrderID]model.OrderID

	balance           decimal.Decimal
	commissionAccrued decimal.Decimal
	rolloverAccrued   decimal.Decimal
	exposure          map[model.Symbol]decimal.Decimal
	lastRolloverDay   time.Time

	brokerOrderSeq    int
	executionSeq      int
	brokerPositionSeq int
}

// NewVenue creates a simulated venue.
func NewVenue(
	cfg VenueConfig,
	fillModel *FillModel,
	uuidFactory model.UUIDFactory,
	logger core.ILogger,
	metrics *telemetry.VenueMetrics,
) (*Venue, error) {
	if cfg.Name == "" {
		cfg.Name = "SIM"
	}
	if fillModel == nil {
		return nil, apperrors.Invalid("fill model is nil")
	}
	if !cfg.StartingCapital.IsPositive() {
		return nil, apperrors.Invalid("starting capital must be positive (was %s)", cfg.StartingCapital)
	}
	if cfg.CommissionRateBp.IsNegative() {
		return nil, apperrors.Invalid("commission rate cannot be negative (was %s)", cfg.CommissionRateBp)
	}
	v := &Venue{
		cfg:         cfg,
		fillModel:   fillModel,
		uuidFactory: uuidFactory,
		logger:      logger.WithField("component", "sim_venue"),
		metrics:     metrics,
	}
	v.Reset()
	return v, nil
}

// RegisterEventHandler binds the sink all venue events are emitted to.
func (v *Venue) RegisterEventHandler(handler func(model.Event)) {
	v.handler = handler
}

// Balance returns the simulated account cash balance.
func (v *Venue) Balance() decimal.Decimal { return v.balance }

// CommissionAccrued returns the total commission charged.
func (v *Venue) CommissionAccrued() decimal.Decimal { return v.commissionAccrued }

// RolloverAccrued returns the total rollover interest charged.
func (v *Venue) RolloverAccrued() decimal.Decimal { return v.rolloverAccrued }

// WorkingOrderCount returns the number of resting orders across symbols.
func (v *Venue) WorkingOrderCount() int {
	count := 0
	for _, orders := range v.working {
		count += len(orders)
	}
	return count
}

// Connect marks the venue connected.
func (v *Venue) Connect() error {
	v.connected = true
	return nil
}

// Disconnect marks the venue disconnected.
func (v *Venue) Disconnect() error {
	v.connected = false
	return nil
}

// Reset restores the venue to its initial state.
func (v *Venue) Reset() {
	v.books = make(map[model.Symbol]model.QuoteTick)
	v.working = make(map[model.Symbol][]*workingOrder)
	v.children = make(map[model.OrderID][]*model.Order)
	v.oco = make(map[model.OrderID]model.OrderID)
	v.exposure = make(map[model.Symbol]decimal.Decimal)
	v.balance = v.cfg.StartingCapital
	v.commissionAccrued = decimal.Zero
	v.rolloverAccrued = decimal.Zero
	v.lastRolloverDay = time.Time{}
	v.currentTime = time.Time{}
	v.brokerOrderSeq = 0
	v.executionSeq = 0
	v.brokerPositionSeq = 0
	v.connected = true
}

// AccountInquiry emits a fresh account state event.
func (v *Venue) AccountInquiry(cmd *model.AccountInquiry) error {
	v.emitAccountState(v.now(cmd.Timestamp))
	return nil
}

// SubmitOrder acknowledges, then works or fills the order against the
// current book snapshot.
func (v *Venue) SubmitOrder(cmd *model.SubmitOrder) error {
	v.submit(cmd.Order, v.now(cmd.Timestamp))
	return nil
}

// SubmitBracketOrder submits the entry leg; the children start working when
// the entry fills.
func (v *Venue) SubmitBracketOrder(cmd *model.SubmitBracketOrder) error {
	entry := cmd.Bracket.Entry
	legs := []*model.Order{cmd.Bracket.StopLoss}
	if cmd.Bracket.TakeProfit != nil {
		legs = append(legs, cmd.Bracket.TakeProfit)
	}
	v.children[entry.ID] = legs
	if len(legs) == 2 {
		v.oco[legs[0].ID] = legs[1].ID
		v.oco[legs[1].ID] = legs[0].ID
	}
	v.submit(entry, v.now(cmd.Timestamp))
	return nil
}

// ModifyOrder amends a working order's price and quantity, or rejects.
func (v *Venue) ModifyOrder(cmd *model.ModifyOrder) error {
	now := v.now(cmd.Timestamp)
	w, ok := v.findWorking(cmd.OrderID)
	if !ok {
		v.emitCancelReject(cmd.OrderID, "ModifyOrder", "order not found or not working", now)
		return nil
	}
	if !cmd.ModifiedQuantity.Dec().IsPositive() {
		v.emitCancelReject(cmd.OrderID, "ModifyOrder", "modified quantity must be positive", now)
		return nil
	}

	filled := w.quantity.Dec().Sub(w.leaves.Dec())
	if cmd.ModifiedQuantity.Dec().LessThanOrEqual(filled) {
		v.emitCancelReject(cmd.OrderID, "ModifyOrder", "modified quantity below filled quantity", now)
		return nil
	}
	w.quantity = cmd.ModifiedQuantity
	leaves, err := model.NewQuantity(cmd.ModifiedQuantity.Dec().Sub(filled), cmd.ModifiedQuantity.Precision())
	if err == nil {
		w.leaves = leaves
	}
	if w.orderType.IsPassive() {
		w.price = cmd.ModifiedPrice
	}

	v.emit(model.OrderModified{
		AccountID:        v.cfg.AccountID,
		OrderID:          w.order.ID,
		OrderIDBroker:    w.brokerID,
		ModifiedQuantity: w.quantity,
		ModifiedPrice:    w.price,
		ModifiedTime:     now,
		EventMeta:        v.meta(now),
	})
	return nil
}

// CancelOrder cancels a working order, or rejects.
func (v *Venue) CancelOrder(cmd *model.CancelOrder) error {
	now := v.now(cmd.Timestamp)
	w, ok := v.findWorking(cmd.OrderID)
	if !ok {
		v.emitCancelReject(cmd.OrderID, "CancelOrder", "order not found or not working", now)
		return nil
	}
	v.removeWorking(w)
	v.emit(model.OrderCancelled{
		AccountID:     v.cfg.AccountID,
		OrderID:       w.order.ID,
		CancelledTime: now,
		EventMeta:     v.meta(now),
	})
	return nil
}

// ProcessTick folds a quote tick into the book and runs the matching scan
// over the symbol's resting orders in FIFO order.
func (v *Venue) ProcessTick(tick model.QuoteTick) {
	v.currentTime = tick.Timestamp
	v.books[tick.Symbol] = tick
	if v.metrics != nil {
		v.metrics.TicksProcessed.Inc()
	}

	v.applyRollover(tick.Timestamp)

	resting := v.working[tick.Symbol]
	for _, w := range append([]*workingOrder(nil), resting...) {
		if !v.stillWorking(w) {
			continue
		}
		if w.expireTime != nil && !tick.Timestamp.Before(*w.expireTime) {
			v.removeWorking(w)
			v.emit(model.OrderExpired{
				AccountID:   v.cfg.AccountID,
				OrderID:     w.order.ID,
				ExpiredTime: tick.Timestamp,
				EventMeta:   v.meta(tick.Timestamp),
			})
			if v.metrics != nil {
				v.metrics.OrdersExpired.Inc()
			}
			continue
		}
		if triggered, base := v.trigger(w, tick); triggered {
			v.fill(w, base, tick.Timestamp)
		}
	}
}

// submit acknowledges a new order and immediately works or fills it.
func (v *Venue) submit(order *model.Order, now time.Time) {
	v.emit(model.OrderSubmitted{
		AccountID:     v.cfg.AccountID,
		OrderID:       order.ID,
		SubmittedTime: now,
		EventMeta:     v.meta(now),
	})

	book, hasBook := v.books[order.Symbol]
	if order.OrderType == model.Market && !hasBook {
		v.emit(model.OrderRejected{
			AccountID:      v.cfg.AccountID,
			OrderID:        order.ID,
			RejectedTime:   now,
			RejectedReason: "no market data for " + order.Symbol.String(),
			EventMeta:      v.meta(now),
		})
		return
	}

	v.emit(model.OrderAccepted{
		AccountID:    v.cfg.AccountID,
		OrderID:      order.ID,
		AcceptedTime: now,
		EventMeta:    v.meta(now),
	})

	v.brokerOrderSeq++
	v.brokerPositionSeq++
	w := &workingOrder{
		order:            order,
		brokerID:         model.OrderIDBroker(fmt.Sprintf("B-%d", v.brokerOrderSeq)),
		positionIDBroker: model.PositionIDBroker(fmt.Sprintf("T-%d", v.brokerPositionSeq)),
		side:             order.Side,
		orderType:        order.OrderType,
		quantity:         order.Quantity,
		leaves:           order.Quantity,
		expireTime:       order.ExpireTime,
	}
	if order.Price != nil {
		w.price = *order.Price
	}

	if order.OrderType == model.Market {
		_, base := v.trigger(w, book)
		v.fill(w, base, now)
		return
	}

	if hasBook {
		if triggered, base := v.trigger(w, book); triggered {
			v.fill(w, base, now)
			if w.leaves.IsZero() {
				return
			}
		}
	}

	v.working[order.Symbol] = append(v.working[order.Symbol], w)
	v.emitWorking(w, now)
}

// trigger evaluates the matching policy for one order against the book and
// returns the base execution price. Limit orders rest passively: buys
// trigger when the ask reaches the limit, sells when the bid does. Stops
// trigger on the opposite comparison. Market orders always trigger at the
// touch.
func (v *Venue) trigger(w *workingOrder, book model.QuoteTick) (bool, model.Price) {
	switch w.orderType {
	case model.Market:
		if w.side == model.Buy {
			return true, book.Ask
		}
		return true, book.Bid
	case model.Limit:
		if w.side == model.Buy && book.Ask.Cmp(w.price.Decimal64) <= 0 {
			return true, v.passivePrice(w, book.Ask)
		}
		if w.side == model.Sell && book.Bid.Cmp(w.price.Decimal64) >= 0 {
			return true, v.passivePrice(w, book.Bid)
		}
	case model.Stop:
		if w.side == model.Buy && book.Ask.Cmp(w.price.Decimal64) >= 0 {
			return true, v.passivePrice(w, book.Ask)
		}
		if w.side == model.Sell && book.Bid.Cmp(w.price.Decimal64) <= 0 {
			return true, v.passivePrice(w, book.Bid)
		}
	}
	return false, model.Price{}
}

// passivePrice draws whether the order executes at its own resting price or
// at the market touch.
func (v *Venue) passivePrice(w *workingOrder, touch model.Price) model.Price {
	if v.fillModel.IsFilledAtLimit() {
		return w.price
	}
	return touch
}

// fill executes the triggered order, applying the slippage draw, emitting
// the fill event and charging commission.
func (v *Venue) fill(w *workingOrder, base model.Price, now time.Time) {
	quantity := v.fillModel.NextFillQuantity(w.leaves)
	if quantity.IsZero() {
		return
	}

	execPrice := base
	if v.fillModel.IsSlipped() {
		tickSize := decimal.New(1, -base.Precision())
		if w.side == model.Sell {
			tickSize = tickSize.Neg()
		}
		if slipped, err := base.AddDelta(tickSize); err == nil {
			execPrice = slipped
		}
	}

	v.executionSeq++
	executionID := model.ExecutionID(fmt.Sprintf("E-%d", v.executionSeq))
	leaves, err := w.leaves.SubQty(quantity)
	if err != nil {
		v.logger.Error("fill quantity exceeds leaves", "order_id", string(w.order.ID))
		return
	}
	w.leaves = leaves

	if w.leaves.IsZero() {
		v.removeWorking(w)
		v.emit(model.OrderFilled{
			AccountID:        v.cfg.AccountID,
			OrderID:          w.order.ID,
			ExecutionID:      executionID,
			PositionIDBroker: w.positionIDBroker,
			Symbol:           w.order.Symbol,
			Side:             w.side,
			FilledQuantity:   quantity,
			AveragePrice:     execPrice,
			Currency:         v.cfg.Currency,
			ExecutionTime:    now,
			EventMeta:        v.meta(now),
		})
	} else {
		v.emit(model.OrderPartiallyFilled{
			AccountID:        v.cfg.AccountID,
			OrderID:          w.order.ID,
			ExecutionID:      executionID,
			PositionIDBroker: w.positionIDBroker,
			Symbol:           w.order.Symbol,
			Side:             w.side,
			FilledQuantity:   quantity,
			LeavesQuantity:   w.leaves,
			AveragePrice:     execPrice,
			Currency:         v.cfg.Currency,
			ExecutionTime:    now,
			EventMeta:        v.meta(now),
		})
	}
	if v.metrics != nil {
		v.metrics.FillsEmitted.Inc()
	}

	v.trackExposure(w.order.Symbol, w.side, quantity)
	v.chargeCommission(execPrice, quantity, now)

	if w.leaves.IsZero() {
		v.afterFullFill(w, now)
	}
}

// afterFullFill activates bracket children and cancels OCO siblings.
func (v *Venue) afterFullFill(w *workingOrder, now time.Time) {
	if legs, ok := v.children[w.order.ID]; ok {
		delete(v.children, w.order.ID)
		for _, leg := range legs {
			v.submit(leg, now)
		}
	}
	if siblingID, ok := v.oco[w.order.ID]; ok {
		delete(v.oco, w.order.ID)
		delete(v.oco, siblingID)
		if sibling, found := v.findWorking(siblingID); found {
			v.removeWorking(sibling)
			v.emit(model.OrderCancelled{
				AccountID:     v.cfg.AccountID,
				OrderID:       siblingID,
				CancelledTime: now,
				EventMeta:     v.meta(now),
			})
		}
	}
}

// chargeCommission applies notional * rate_bp / 10000 to the account. A
// frozen account takes no PnL application.
func (v *Venue) chargeCommission(price model.Price, quantity model.Quantity, now time.Time) {
	if v.cfg.CommissionRateBp.IsZero() {
		return
	}
	notional := price.Dec().Mul(quantity.Dec())
	commission := notional.Mul(v.cfg.CommissionRateBp).Div(decimal.NewFromInt(10000))
	v.commissionAccrued = v.commissionAccrued.Add(commission)
	if !v.cfg.FrozenAccount {
		v.balance = v.balance.Sub(commission)
		v.emitAccountState(now)
	}
}

// applyRollover accrues nightly interest on open exposure when the tick
// crosses into a new UTC day.
func (v *Venue) applyRollover(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if v.lastRolloverDay.IsZero() {
		v.lastRolloverDay = day
		return
	}
	if !day.After(v.lastRolloverDay) {
		return
	}
	v.lastRolloverDay = day
	if v.cfg.RolloverInterestRateBp.IsZero() {
		return
	}

	symbols := make([]model.Symbol, 0, len(v.exposure))
	for symbol := range v.exposure {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].String() < symbols[j].String() })

	total := decimal.Zero
	for _, symbol := range symbols {
		units := v.exposure[symbol]
		if units.IsZero() {
			continue
		}
		book, ok := v.books[symbol]
		if !ok {
			continue
		}
		mid := book.Bid.Dec().Add(book.Ask.Dec()).Div(decimal.NewFromInt(2))
		notional := units.Abs().Mul(mid)
		interest := notional.Mul(v.cfg.RolloverInterestRateBp).
			Div(decimal.NewFromInt(10000)).
			Div(decimal.NewFromInt(365))
		total = total.Add(interest)
	}
	if total.IsZero() {
		return
	}
	v.rolloverAccrued = v.rolloverAccrued.Add(total)
	if !v.cfg.FrozenAccount {
		v.balance = v.balance.Sub(total)
		v.emitAccountState(now)
	}
}

func (v *Venue) trackExposure(symbol model.Symbol, side model.OrderSide, quantity model.Quantity) {
	delta := quantity.Dec()
	if side == model.Sell {
		delta = delta.Neg()
	}
	v.exposure[symbol] = v.exposure[symbol].Add(delta)
}

func (v *Venue) emitWorking(w *workingOrder, now time.Time) {
	v.emit(model.OrderWorking{
		AccountID:     v.cfg.AccountID,
		OrderID:       w.order.ID,
		OrderIDBroker: w.brokerID,
		Symbol:        w.order.Symbol,
		Side:          w.side,
		OrderType:     w.orderType,
		Quantity:      w.quantity,
		Price:         w.price,
		TimeInForce:   w.order.TimeInForce,
		ExpireTime:    w.expireTime,
		WorkingTime:   now,
		EventMeta:     v.meta(now),
	})
}

func (v *Venue) emitAccountState(now time.Time) {
	balance, err := model.NewMoney(v.balance, v.cfg.Currency)
	if err != nil {
		return
	}
	start, _ := model.NewMoney(v.cfg.StartingCapital, v.cfg.Currency)
	activity, _ := model.NewMoney(v.balance.Sub(v.cfg.StartingCapital), v.cfg.Currency)
	ratio, _ := model.NewDecimal64FromString("0.00")
	v.emit(model.AccountStateEvent{
		AccountID:             v.cfg.AccountID,
		Currency:              v.cfg.Currency,
		CashBalance:           balance,
		CashStartDay:          start,
		CashActivityDay:       activity,
		MarginUsedLiquidation: model.MoneyZero(v.cfg.Currency),
		MarginUsedMaintenance: model.MoneyZero(v.cfg.Currency),
		MarginRatio:           ratio,
		MarginCallStatus:      "NONE",
		EventMeta:             v.meta(now),
	})
}

func (v *Venue) emitCancelReject(orderID model.OrderID, responseTo, reason string, now time.Time) {
	v.emit(model.OrderCancelReject{
		AccountID:          v.cfg.AccountID,
		OrderID:            orderID,
		RejectedTime:       now,
		RejectedResponseTo: responseTo,
		RejectedReason:     reason,
		EventMeta:          v.meta(now),
	})
}

func (v *Venue) emit(event model.Event) {
	if v.handler == nil {
		v.logger.Warn("no event handler registered, event dropped")
		return
	}
	v.handler(event)
}

func (v *Venue) meta(now time.Time) model.EventMeta {
	return model.EventMeta{ID: v.uuidFactory.Generate(), Timestamp: now}
}

func (v *Venue) now(fallback time.Time) time.Time {
	if v.currentTime.IsZero() {
		return fallback
	}
	return v.currentTime
}

func (v *Venue) findWorking(orderID model.OrderID) (*workingOrder, bool) {
	for _, orders := range v.working {
		for _, w := range orders {
			if w.order.ID == orderID {
				return w, true
			}
		}
	}
	return nil, false
}

func (v *Venue) stillWorking(w *workingOrder) bool {
	for _, candidate := range v.working[w.order.Symbol] {
		if candidate == w {
			return true
		}
	}
	return false
}

func (v *Venue) removeWorking(w *workingOrder) {
	orders := v.working[w.order.Symbol]
	for i, candidate := range orders {
		if candidate == w {
			v.working[w.order.Symbol] = append(orders[:i], orders[i+1:]...)
			return
		}
	}
}
