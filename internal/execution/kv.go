package execution

import (
	"fmt"
	"sort"
	"strings"

	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/internal/serialization"
)

// KVDatabase is the external-KV execution database backend. Indexes and
// cross-references stay process-resident for O(1) reads; orders, positions,
// accounts and strategy states write through to the key-value store under a
// per-trader namespace. Within a trader, reads are consistent as soon as a
// write returns.
type KVDatabase struct {
	*InMemoryDatabase

	store     core.IKeyValueStore
	orders    serialization.OrderSerializer
	events    *serialization.EventSerializer
	namespace string

	orderEventCursor    map[model.OrderID]int
	positionEventCursor map[model.PositionID]int
}

// NewKVDatabase creates a KV-backed execution database for the trader.
func NewKVDatabase(traderID model.TraderID, store core.IKeyValueStore, logger core.ILogger) *KVDatabase {
	return &KVDatabase{
		InMemoryDatabase:    NewInMemoryDatabase(traderID, logger),
		store:               store,
		events:              serialization.NewEventSerializer(),
		namespace:           "trader:" + string(traderID),
		orderEventCursor:    make(map[model.OrderID]int),
		positionEventCursor: make(map[model.PositionID]int),
	}
}

func (db *KVDatabase) bucket(kind string) string {
	return db.namespace + ":" + kind
}

// AddAccount stores the account and persists its latest state event.
func (db *KVDatabase) AddAccount(account *model.Account) error {
	if err := db.InMemoryDatabase.AddAccount(account); err != nil {
		return err
	}
	return db.persistAccount(account)
}

// AddOrder stores the order, persists its definition and its index entry.
func (db *KVDatabase) AddOrder(order *model.Order, strategyID model.StrategyID, positionID model.PositionID) error {
	if err := db.InMemoryDatabase.AddOrder(order, strategyID, positionID); err != nil {
		return err
	}
	data, err := db.orders.Serialize(order)
	if err != nil {
		return err
	}
	if err := db.store.Put(db.bucket("orders"), string(order.ID), data); err != nil {
		return err
	}
	index := string(positionID) + "\x00" + string(strategyID)
	if err := db.store.Put(db.bucket("index"), string(order.ID), []byte(index)); err != nil {
		return err
	}
	return db.persistOrderEvents(order)
}

// AddPosition stores the position and persists its fill events.
func (db *KVDatabase) AddPosition(position *model.Position, strategyID model.StrategyID) error {
	if err := db.InMemoryDatabase.AddPosition(position, strategyID); err != nil {
		return err
	}
	return db.persistPositionEvents(position)
}

// UpdateAccount persists the account's latest state event.
func (db *KVDatabase) UpdateAccount(account *model.Account) error {
	if err := db.InMemoryDatabase.UpdateAccount(account); err != nil {
		return err
	}
	return db.persistAccount(account)
}

// UpdateOrder persists any events applied since the last write.
func (db *KVDatabase) UpdateOrder(order *model.Order) error {
	if err := db.InMemoryDatabase.UpdateOrder(order); err != nil {
		return err
	}
	return db.persistOrderEvents(order)
}

// UpdatePosition persists any fills applied since the last write.
func (db *KVDatabase) UpdatePosition(position *model.Position) error {
	if err := db.InMemoryDatabase.UpdatePosition(position); err != nil {
		return err
	}
	return db.persistPositionEvents(position)
}

// UpdateStrategyState persists the strategy state map.
func (db *KVDatabase) UpdateStrategyState(strategyID model.StrategyID, state map[string]string) error {
	if err := db.InMemoryDatabase.UpdateStrategyState(strategyID, state); err != nil {
		return err
	}
	entries := make(map[string][]byte, len(state))
	for key, value := range state {
		entries[key] = []byte(value)
	}
	return db.store.Put(db.bucket("strategies"), string(strategyID), serialization.EncodeMap(entries))
}

// DeleteStrategy removes the strategy's persisted state.
func (db *KVDatabase) DeleteStrategy(strategyID model.StrategyID) error {
	if err := db.InMemoryDatabase.DeleteStrategy(strategyID); err != nil {
		return err
	}
	return db.store.Delete(db.bucket("strategies"), string(strategyID))
}

// Reset clears the cache. Persistent storage is left intact; LoadCache
// rehydrates from it.
func (db *KVDatabase) Reset() {
	db.InMemoryDatabase.Reset()
	db.orderEventCursor = make(map[model.OrderID]int)
	db.positionEventCursor = make(map[model.PositionID]int)
}

func (db *KVDatabase) persistAccount(account *model.Account) error {
	event, ok := account.LastEvent()
	if !ok {
		return nil
	}
	data, err := db.events.Serialize(event)
	if err != nil {
		return err
	}
	return db.store.Put(db.bucket("accounts"), string(account.ID), data)
}

func (db *KVDatabase) persistOrderEvents(order *model.Order) error {
	events := order.Events()
	cursor := db.orderEventCursor[order.ID]
	for ; cursor < len(events); cursor++ {
		data, err := db.events.Serialize(events[cursor])
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s:%06d", order.ID, cursor)
		if err := db.store.Put(db.bucket("orderevents"), key, data); err != nil {
			return err
		}
	}
	db.orderEventCursor[order.ID] = cursor
	return nil
}

func (db *KVDatabase) persistPositionEvents(position *model.Position) error {
	events := position.Events()
	cursor := db.positionEventCursor[position.ID]
	for ; cursor < len(events); cursor++ {
		data, err := db.events.Serialize(events[cursor])
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s:%06d", position.ID, cursor)
		if err := db.store.Put(db.bucket("positionevents"), key, data); err != nil {
			return err
		}
	}
	db.positionEventCursor[position.ID] = cursor
	return nil
}

// LoadCache rebuilds the in-memory cache and indexes from the store. Events
// that no longer deserialize are skipped with an error log rather than
// aborting the load.
func (db *KVDatabase) LoadCache() error {
	orderKeys, err := db.store.Keys(db.bucket("orders"))
	if err != nil {
		return err
	}
	for _, key := range orderKeys {
		if err := db.loadOrder(key); err != nil {
			db.logger.Error("failed to load order from store", "order_id", key, "error", err.Error())
		}
	}

	if err := db.loadPositions(); err != nil {
		return err
	}

	accountKeys, err := db.store.Keys(db.bucket("accounts"))
	if err != nil {
		return err
	}
	for _, key := range accountKeys {
		data, ok, err := db.store.Get(db.bucket("accounts"), key)
		if err != nil || !ok {
			continue
		}
		event, err := db.events.Deserialize(data)
		if err != nil {
			db.logger.Error("failed to load account from store", "account_id", key, "error", err.Error())
			continue
		}
		state, ok := event.(model.AccountStateEvent)
		if !ok {
			continue
		}
		account, err := model.NewAccount(state)
		if err != nil {
			continue
		}
		_ = db.InMemoryDatabase.AddAccount(account)
	}

	strategyKeys, err := db.store.Keys(db.bucket("strategies"))
	if err != nil {
		return err
	}
	for _, key := range strategyKeys {
		data, ok, err := db.store.Get(db.bucket("strategies"), key)
		if err != nil || !ok {
			continue
		}
		entries, err := serialization.DecodeMap(data)
		if err != nil {
			db.logger.Error("failed to load strategy state", "strategy_id", key, "error", err.Error())
			continue
		}
		state := make(map[string]string, len(entries))
		for k, v := range entries {
			state[k] = string(v)
		}
		_ = db.InMemoryDatabase.UpdateStrategyState(model.StrategyID(key), state)
	}
	return nil
}

func (db *KVDatabase) loadOrder(key string) error {
	data, ok, err := db.store.Get(db.bucket("orders"), key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	order, err := db.orders.Deserialize(data)
	if err != nil {
		return err
	}

	indexData, ok, err := db.store.Get(db.bucket("index"), key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %s has no index entry", key)
	}
	positionValue, strategyValue, found := strings.Cut(string(indexData), "\x00")
	if !found {
		return fmt.Errorf("order %s has a malformed index entry", key)
	}

	count := 0
	for _, event := range db.loadEvents(db.bucket("orderevents"), key) {
		orderEvent, ok := event.(model.OrderEvent)
		if !ok {
			continue
		}
		if err := order.Apply(orderEvent); err != nil {
			db.logger.Error("failed to replay order event", "order_id", key, "error", err.Error())
			continue
		}
		count++
	}

	if err := db.InMemoryDatabase.AddOrder(order, model.StrategyID(strategyValue), model.PositionID(positionValue)); err != nil {
		return err
	}
	db.orderEventCursor[order.ID] = count
	return db.InMemoryDatabase.UpdateOrder(order)
}

func (db *KVDatabase) loadEvents(bucket, key string) []model.Event {
	keys, err := db.store.Keys(bucket)
	if err != nil {
		return nil
	}
	prefix := key + ":"
	var matched []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)

	events := make([]model.Event, 0, len(matched))
	for _, k := range matched {
		data, ok, err := db.store.Get(bucket, k)
		if err != nil || !ok {
			continue
		}
		event, err := db.events.Deserialize(data)
		if err != nil {
			db.logger.Error("failed to load event from store", "key", k, "error", err.Error())
			continue
		}
		events = append(events, event)
	}
	return events
}

func (db *KVDatabase) loadPositions() error {
	keys, err := db.store.Keys(db.bucket("positionevents"))
	if err != nil {
		return err
	}
	sort.Strings(keys)

	grouped := make(map[model.PositionID][]model.OrderFillEvent)
	var order []model.PositionID
	for _, key := range keys {
		id, _, found := strings.Cut(key, ":")
		if !found {
			continue
		}
		data, ok, err := db.store.Get(db.bucket("positionevents"), key)
		if err != nil || !ok {
			continue
		}
		event, err := db.events.Deserialize(data)
		if err != nil {
			db.logger.Error("failed to load position event", "position_id", id, "error", err.Error())
			continue
		}
		fill, ok := event.(model.OrderFillEvent)
		if !ok {
			continue
		}
		positionID := model.PositionID(id)
		if _, seen := grouped[positionID]; !seen {
			order = append(order, positionID)
		}
		grouped[positionID] = append(grouped[positionID], fill)
	}

	for _, id := range order {
		fills := grouped[id]
		position := model.NewPosition(id, fills[0])
		for _, fill := range fills[1:] {
			position.Apply(fill)
		}
		strategyID, _ := db.GetStrategyForPosition(id)
		if strategyID == "" {
			if sid, ok := db.GetStrategyForOrder(position.FromOrderID); ok {
				strategyID = sid
			}
		}
		if err := db.InMemoryDatabase.AddPosition(position, strategyID); err != nil {
			db.logger.Error("failed to cache position", "position_id", string(id), "error", err.Error())
			continue
		}
		db.positionEventCursor[id] = len(fills)
		_ = db.InMemoryDatabase.UpdatePosition(position)
	}
	return nil
}
