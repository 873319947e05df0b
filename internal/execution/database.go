// Package execution contains the execution database backends and the
// execution engine: the single point enforcing order state transitions and
// emitting derived position events.
package execution

import (
	"fmt"

	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// InMemoryDatabase is the process-resident execution database backend. All
// reads and writes are O(1) expected; every write keeps the dependent
// cross-reference indexes consistent as one unit.
type InMemoryDatabase struct {
	traderID model.TraderID
	logger   core.ILogger

	accounts  map[model.AccountID]*model.Account
	orders    map[model.OrderID]*model.Order
	positions map[model.PositionID]*model.Position

	indexOrderPosition     map[model.OrderID]model.PositionID
	indexOrderStrategy     map[model.OrderID]model.StrategyID
	indexBrokerPosition    map[model.PositionIDBroker]model.PositionID
	indexPositionStrategy  map[model.PositionID]model.StrategyID
	indexPositionOrders    map[model.PositionID]map[model.OrderID]struct{}
	indexStrategyOrders    map[model.StrategyID]map[model.OrderID]struct{}
	indexStrategyPositions map[model.StrategyID]map[model.PositionID]struct{}

	ordersWorking   map[model.OrderID]struct{}
	ordersCompleted map[model.OrderID]struct{}
	positionsOpen   map[model.PositionID]struct{}
	positionsClosed map[model.PositionID]struct{}

	strategyStates map[model.StrategyID]map[string]string
}

// NewInMemoryDatabase creates an empty in-memory execution database.
func NewInMemoryDatabase(traderID model.TraderID, logger core.ILogger) *InMemoryDatabase {
	db := &InMemoryDatabase{
		traderID: traderID,
		logger:   logger.WithField("component", "exec_db"),
	}
	db.Reset()
	return db
}

// Reset clears all cached state.
func (db *InMemoryDatabase) Reset() {
	db.accounts = make(map[model.AccountID]*model.Account)
	db.orders = make(map[model.OrderID]*model.Order)
	db.positions = make(map[model.PositionID]*model.Position)
	db.indexOrderPosition = make(map[model.OrderID]model.PositionID)
	db.indexOrderStrategy = make(map[model.OrderID]model.StrategyID)
	db.indexBrokerPosition = make(map[model.PositionIDBroker]model.PositionID)
	db.indexPositionStrategy = make(map[model.PositionID]model.StrategyID)
	db.indexPositionOrders = make(map[model.PositionID]map[model.OrderID]struct{})
	db.indexStrategyOrders = make(map[model.StrategyID]map[model.OrderID]struct{})
	db.indexStrategyPositions = make(map[model.StrategyID]map[model.PositionID]struct{})
	db.ordersWorking = make(map[model.OrderID]struct{})
	db.ordersCompleted = make(map[model.OrderID]struct{})
	db.positionsOpen = make(map[model.PositionID]struct{})
	db.positionsClosed = make(map[model.PositionID]struct{})
	db.strategyStates = make(map[model.StrategyID]map[string]string)
}

// AddAccount stores a new account.
func (db *InMemoryDatabase) AddAccount(account *model.Account) error {
	if account == nil {
		return apperrors.Invalid("account is nil")
	}
	if _, ok := db.accounts[account.ID]; ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicateKey, account.ID)
	}
	db.accounts[account.ID] = account
	return nil
}

// AddOrder stores a new order indexed to its strategy and position. All
// dependent indexes are updated together; the duplicate checks run first so a
// failure leaves nothing half-written.
func (db *InMemoryDatabase) AddOrder(order *model.Order, strategyID model.StrategyID, positionID model.PositionID) error {
	if order == nil {
		return apperrors.Invalid("order is nil")
	}
	if _, ok := db.orders[order.ID]; ok {
		return fmt.Errorf("%w: order %s", apperrors.ErrDuplicateKey, order.ID)
	}
	if _, ok := db.indexOrderPosition[order.ID]; ok {
		return fmt.Errorf("%w: order %s in order-position index", apperrors.ErrDuplicateKey, order.ID)
	}
	if _, ok := db.indexOrderStrategy[order.ID]; ok {
		return fmt.Errorf("%w: order %s in order-strategy index", apperrors.ErrDuplicateKey, order.ID)
	}
	if existing, ok := db.indexPositionStrategy[positionID]; ok && existing != strategyID {
		return apperrors.Invalid("position %s belongs to strategy %s, not %s", positionID, existing, strategyID)
	}

	db.orders[order.ID] = order
	db.indexOrderPosition[order.ID] = positionID
	db.indexOrderStrategy[order.ID] = strategyID
	db.indexPositionStrategy[positionID] = strategyID
	addToSet(db.indexPositionOrders, positionID, order.ID)
	addToSet(db.indexStrategyOrders, strategyID, order.ID)
	addToSet(db.indexStrategyPositions, strategyID, positionID)
	return nil
}

// AddPosition stores a new open position for the strategy.
func (db *InMemoryDatabase) AddPosition(position *model.Position, strategyID model.StrategyID) error {
	if position == nil {
		return apperrors.Invalid("position is nil")
	}
	if _, ok := db.positions[position.ID]; ok {
		return fmt.Errorf("%w: position %s", apperrors.ErrDuplicateKey, position.ID)
	}
	db.positions[position.ID] = position
	db.positionsOpen[position.ID] = struct{}{}
	db.indexPositionStrategy[position.ID] = strategyID
	addToSet(db.indexStrategyPositions, strategyID, position.ID)
	if position.IDBroker != "" {
		db.indexBrokerPosition[position.IDBroker] = position.ID
	}
	return nil
}

// UpdateAccount persists an account state change.
func (db *InMemoryDatabase) UpdateAccount(account *model.Account) error {
	if account == nil {
		return apperrors.Invalid("account is nil")
	}
	if _, ok := db.accounts[account.ID]; !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, account.ID)
	}
	db.accounts[account.ID] = account
	return nil
}

// UpdateOrder moves the order between the working and completed index sets
// according to its state.
func (db *InMemoryDatabase) UpdateOrder(order *model.Order) error {
	if order == nil {
		return apperrors.Invalid("order is nil")
	}
	if _, ok := db.orders[order.ID]; !ok {
		return fmt.Errorf("%w: order %s", apperrors.ErrNotFound, order.ID)
	}
	db.orders[order.ID] = order
	switch {
	case order.IsWorking():
		db.ordersWorking[order.ID] = struct{}{}
		delete(db.ordersCompleted, order.ID)
	case order.IsCompleted():
		db.ordersCompleted[order.ID] = struct{}{}
		delete(db.ordersWorking, order.ID)
	default:
		delete(db.ordersWorking, order.ID)
		delete(db.ordersCompleted, order.ID)
	}
	return nil
}

// UpdatePosition moves the position from open to closed when its quantity
// reaches zero, and registers the broker position id index.
func (db *InMemoryDatabase) UpdatePosition(position *model.Position) error {
	if position == nil {
		return apperrors.Invalid("position is nil")
	}
	if _, ok := db.positions[position.ID]; !ok {
		return fmt.Errorf("%w: position %s", apperrors.ErrNotFound, position.ID)
	}
	db.positions[position.ID] = position
	if position.IDBroker != "" {
		db.indexBrokerPosition[position.IDBroker] = position.ID
	}
	if position.IsClosed() {
		db.positionsClosed[position.ID] = struct{}{}
		delete(db.positionsOpen, position.ID)
	} else {
		db.positionsOpen[position.ID] = struct{}{}
		delete(db.positionsClosed, position.ID)
	}
	return nil
}

// UpdateStrategyState stores an opaque per-strategy state map.
func (db *InMemoryDatabase) UpdateStrategyState(strategyID model.StrategyID, state map[string]string) error {
	if err := apperrors.NotEmpty(string(strategyID), "strategy id"); err != nil {
		return err
	}
	copied := make(map[string]string, len(state))
	for key, value := range state {
		copied[key] = value
	}
	db.strategyStates[strategyID] = copied
	return nil
}

// DeleteStrategy removes a strategy's state and index entries. Orders and
// positions themselves stay resident.
func (db *InMemoryDatabase) DeleteStrategy(strategyID model.StrategyID) error {
	if _, ok := db.strategyStates[strategyID]; !ok {
		if _, indexed := db.indexStrategyOrders[strategyID]; !indexed {
			if _, positions := db.indexStrategyPositions[strategyID]; !positions {
				return fmt.Errorf("%w: strategy %s", apperrors.ErrNotFound, strategyID)
			}
		}
	}
	delete(db.strategyStates, strategyID)
	delete(db.indexStrategyOrders, strategyID)
	delete(db.indexStrategyPositions, strategyID)
	return nil
}

func (db *InMemoryDatabase) GetAccount(id model.AccountID) (*model.Account, bool) {
	account, ok := db.accounts[id]
	return account, ok
}

func (db *InMemoryDatabase) GetOrder(id model.OrderID) (*model.Order, bool) {
	order, ok := db.orders[id]
	return order, ok
}

func (db *InMemoryDatabase) GetPosition(id model.PositionID) (*model.Position, bool) {
	position, ok := db.positions[id]
	return position, ok
}

func (db *InMemoryDatabase) GetPositionForOrder(orderID model.OrderID) (*model.Position, bool) {
	positionID, ok := db.indexOrderPosition[orderID]
	if !ok {
		return nil, false
	}
	return db.GetPosition(positionID)
}

func (db *InMemoryDatabase) GetPositionID(orderID model.OrderID) (model.PositionID, bool) {
	positionID, ok := db.indexOrderPosition[orderID]
	return positionID, ok
}

func (db *InMemoryDatabase) GetPositionIDForBroker(brokerID model.PositionIDBroker) (model.PositionID, bool) {
	positionID, ok := db.indexBrokerPosition[brokerID]
	return positionID, ok
}

func (db *InMemoryDatabase) GetStrategyForOrder(orderID model.OrderID) (model.StrategyID, bool) {
	strategyID, ok := db.indexOrderStrategy[orderID]
	return strategyID, ok
}

func (db *InMemoryDatabase) GetStrategyForPosition(positionID model.PositionID) (model.StrategyID, bool) {
	strategyID, ok := db.indexPositionStrategy[positionID]
	return strategyID, ok
}

func (db *InMemoryDatabase) GetStrategyState(strategyID model.StrategyID) (map[string]string, bool) {
	state, ok := db.strategyStates[strategyID]
	if !ok {
		return nil, false
	}
	copied := make(map[string]string, len(state))
	for key, value := range state {
		copied[key] = value
	}
	return copied, true
}

func (db *InMemoryDatabase) GetOrderIDs() []model.OrderID {
	ids := make([]model.OrderID, 0, len(db.orders))
	for id := range db.orders {
		ids = append(ids, id)
	}
	return ids
}

func (db *InMemoryDatabase) GetOrders() map[model.OrderID]*model.Order {
	return copyOrders(db.orders, nil)
}

func (db *InMemoryDatabase) GetOrdersWorking() map[model.OrderID]*model.Order {
	return copyOrders(db.orders, db.ordersWorking)
}

func (db *InMemoryDatabase) GetOrdersCompleted() map[model.OrderID]*model.Order {
	return copyOrders(db.orders, db.ordersCompleted)
}

func (db *InMemoryDatabase) GetOrdersForStrategy(strategyID model.StrategyID) map[model.OrderID]*model.Order {
	out := make(map[model.OrderID]*model.Order)
	for id := range db.indexStrategyOrders[strategyID] {
		if order, ok := db.orders[id]; ok {
			out[id] = order
		}
	}
	return out
}

func (db *InMemoryDatabase) GetOrdersWorkingForStrategy(strategyID model.StrategyID) map[model.OrderID]*model.Order {
	out := make(map[model.OrderID]*model.Order)
	for id := range db.indexStrategyOrders[strategyID] {
		if _, working := db.ordersWorking[id]; working {
			out[id] = db.orders[id]
		}
	}
	return out
}

func (db *InMemoryDatabase) GetOrdersCompletedForStrategy(strategyID model.StrategyID) map[model.OrderID]*model.Order {
	out := make(map[model.OrderID]*model.Order)
	for id := range db.indexStrategyOrders[strategyID] {
		if _, completed := db.ordersCompleted[id]; completed {
			out[id] = db.orders[id]
		}
	}
	return out
}

func (db *InMemoryDatabase) GetPositionIDs() []model.PositionID {
	ids := make([]model.PositionID, 0, len(db.positions))
	for id := range db.positions {
		ids = append(ids, id)
	}
	return ids
}

func (db *InMemoryDatabase) GetPositions() map[model.PositionID]*model.Position {
	return copyPositions(db.positions, nil)
}

func (db *InMemoryDatabase) GetPositionsOpen() map[model.PositionID]*model.Position {
	return copyPositions(db.positions, db.positionsOpen)
}

func (db *InMemoryDatabase) GetPositionsClosed() map[model.PositionID]*model.Position {
	return copyPositions(db.positions, db.positionsClosed)
}

func (db *InMemoryDatabase) GetPositionsForStrategy(strategyID model.StrategyID) map[model.PositionID]*model.Position {
	out := make(map[model.PositionID]*model.Position)
	for id := range db.indexStrategyPositions[strategyID] {
		if position, ok := db.positions[id]; ok {
			out[id] = position
		}
	}
	return out
}

func (db *InMemoryDatabase) GetPositionsOpenForStrategy(strategyID model.StrategyID) map[model.PositionID]*model.Position {
	out := make(map[model.PositionID]*model.Position)
	for id := range db.indexStrategyPositions[strategyID] {
		if _, open := db.positionsOpen[id]; open {
			out[id] = db.positions[id]
		}
	}
	return out
}

func (db *InMemoryDatabase) GetPositionsClosedForStrategy(strategyID model.StrategyID) map[model.PositionID]*model.Position {
	out := make(map[model.PositionID]*model.Position)
	for id := range db.indexStrategyPositions[strategyID] {
		if _, closed := db.positionsClosed[id]; closed {
			out[id] = db.positions[id]
		}
	}
	return out
}

func (db *InMemoryDatabase) OrderExists(id model.OrderID) bool {
	_, ok := db.orders[id]
	return ok
}

func (db *InMemoryDatabase) IsOrderWorking(id model.OrderID) bool {
	_, ok := db.ordersWorking[id]
	return ok
}

func (db *InMemoryDatabase) IsOrderCompleted(id model.OrderID) bool {
	_, ok := db.ordersCompleted[id]
	return ok
}

func (db *InMemoryDatabase) PositionExists(id model.PositionID) bool {
	_, ok := db.positions[id]
	return ok
}

func (db *InMemoryDatabase) PositionExistsForOrder(orderID model.OrderID) bool {
	positionID, ok := db.indexOrderPosition[orderID]
	if !ok {
		return false
	}
	_, ok = db.positions[positionID]
	return ok
}

func (db *InMemoryDatabase) IsPositionOpen(id model.PositionID) bool {
	_, ok := db.positionsOpen[id]
	return ok
}

func (db *InMemoryDatabase) IsPositionClosed(id model.PositionID) bool {
	_, ok := db.positionsClosed[id]
	return ok
}

func (db *InMemoryDatabase) CountOrdersTotal() int     { return len(db.orders) }
func (db *InMemoryDatabase) CountOrdersWorking() int   { return len(db.ordersWorking) }
func (db *InMemoryDatabase) CountOrdersCompleted() int { return len(db.ordersCompleted) }
func (db *InMemoryDatabase) CountPositionsTotal() int  { return len(db.positions) }
func (db *InMemoryDatabase) CountPositionsOpen() int   { return len(db.positionsOpen) }
func (db *InMemoryDatabase) CountPositionsClosed() int { return len(db.positionsClosed) }

// CheckResiduals warns about any still-working orders and still-open
// positions. It never fails.
func (db *InMemoryDatabase) CheckResiduals() {
	for id := range db.ordersWorking {
		db.logger.Warn("residual working order", "order_id", string(id))
	}
	for id := range db.positionsOpen {
		db.logger.Warn("residual open position", "position_id", string(id))
	}
}

func addToSet[K comparable, V comparable](index map[K]map[V]struct{}, key K, value V) {
	set, ok := index[key]
	if !ok {
		set = make(map[V]struct{})
		index[key] = set
	}
	set[value] = struct{}{}
}

func copyOrders(orders map[model.OrderID]*model.Order, filter map[model.OrderID]struct{}) map[model.OrderID]*model.Order {
	out := make(map[model.OrderID]*model.Order)
	if filter == nil {
		for id, order := range orders {
			out[id] = order
		}
		return out
	}
	for id := range filter {
		if order, ok := orders[id]; ok {
			out[id] = order
		}
	}
	return out
}

func copyPositions(positions map[model.PositionID]*model.Position, filter map[model.PositionID]struct{}) map[model.PositionID]*model.Position {
	out := make(map[model.PositionID]*model.Position)
	if filter == nil {
		for id, position := range positions {
			out[id] = position
		}
		return out
	}
	for id := range filter {
		if position, ok := positions[id]; ok {
			out[id] = position
		}
	}
	return out
}
