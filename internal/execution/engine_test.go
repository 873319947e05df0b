package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/logging"
	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// recordingClient captures forwarded commands and whether the database had
// stored the order at forward time.
type recordingClient struct {
	db                 *InMemoryDatabase
	commands           []model.Command
	orderExistedAtSend []bool
}

func (c *recordingClient) Connect() error    { return nil }
func (c *recordingClient) Disconnect() error { return nil }
func (c *recordingClient) Reset()            {}

func (c *recordingClient) AccountInquiry(cmd *model.AccountInquiry) error {
	c.commands = append(c.commands, cmd)
	return nil
}

func (c *recordingClient) SubmitOrder(cmd *model.SubmitOrder) error {
	c.commands = append(c.commands, cmd)
	c.orderExistedAtSend = append(c.orderExistedAtSend, c.db.OrderExists(cmd.Order.ID))
	return nil
}

func (c *recordingClient) SubmitBracketOrder(cmd *model.SubmitBracketOrder) error {
	c.commands = append(c.commands, cmd)
	c.orderExistedAtSend = append(c.orderExistedAtSend, c.db.OrderExists(cmd.Bracket.Entry.ID))
	return nil
}

func (c *recordingClient) ModifyOrder(cmd *model.ModifyOrder) error {
	c.commands = append(c.commands, cmd)
	return nil
}

func (c *recordingClient) CancelOrder(cmd *model.CancelOrder) error {
	c.commands = append(c.commands, cmd)
	return nil
}

// recordingStrategy captures delivered events.
type recordingStrategy struct {
	id     model.StrategyID
	events []model.Event
}

func (s *recordingStrategy) ID() model.StrategyID            { return s.id }
func (s *recordingStrategy) Start()                          {}
func (s *recordingStrategy) Stop()                           {}
func (s *recordingStrategy) Reset()                          {}
func (s *recordingStrategy) HandleTick(model.QuoteTick)      {}
func (s *recordingStrategy) HandleEvent(event model.Event)   { s.events = append(s.events, event) }

type engineFixture struct {
	engine   *Engine
	db       *InMemoryDatabase
	client   *recordingClient
	strategy *recordingStrategy
	logger   *logging.TestLogger
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	logger := logging.NewTestLogger()
	db := NewInMemoryDatabase(model.TraderID("TESTER-000"), logger)
	portfolio := NewPortfolio(logger)
	engine := NewEngine(
		model.TraderID("TESTER-000"),
		model.AccountID("FXCM-02851908"),
		db,
		portfolio,
		model.NewDeterministicUUIDFactory(1),
		logger,
		nil,
	)
	client := &recordingClient{db: db}
	require.NoError(t, engine.RegisterVenue(client))
	strategy := &recordingStrategy{id: testStrategy}
	require.NoError(t, engine.RegisterStrategy(strategy))
	return &engineFixture{engine: engine, db: db, client: client, strategy: strategy, logger: logger}
}

func (f *engineFixture) submit(t *testing.T, order *model.Order, positionID model.PositionID) {
	t.Helper()
	require.NoError(t, f.engine.Execute(&model.SubmitOrder{
		TraderID:    model.TraderID("TESTER-000"),
		AccountID:   model.AccountID("FXCM-02851908"),
		StrategyID:  testStrategy,
		PositionID:  positionID,
		Order:       order,
		CommandMeta: model.NewCommandMeta(stubEpoch),
	}))
}

func TestEngine_RegisterVenueTwiceFails(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.RegisterVenue(&recordingClient{db: f.db})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)
}

func TestEngine_RegisterStrategyTwiceFails(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.RegisterStrategy(&recordingStrategy{id: testStrategy})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)
}

func TestEngine_DeregisterUnknownStrategyFails(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.DeregisterStrategy(&recordingStrategy{id: model.StrategyID("Ghost-009")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEngine_SubmitOrderStoresBeforeForwarding(t *testing.T) {
	f := newEngineFixture(t)
	order := stubMarketOrder("O-1", model.Buy, "100000")

	f.submit(t, order, testPosition)

	require.Len(t, f.client.commands, 1)
	require.Len(t, f.client.orderExistedAtSend, 1)
	assert.True(t, f.client.orderExistedAtSend[0], "order must be stored before the venue sees the command")
	assert.Equal(t, 1, f.engine.CommandCount())
}

func TestEngine_SubmitBracketStoresAllLegsUnderOnePosition(t *testing.T) {
	f := newEngineFixture(t)
	entry := stubMarketOrder("O-1", model.Buy, "10")
	stopLoss := stubStopOrder("O-2", model.Sell, "10", "0.99000")
	takeProfit := stubLimitTP("O-3", model.Sell, "10", "1.05000")
	bracket, err := model.NewBracketOrder(entry, stopLoss, takeProfit)
	require.NoError(t, err)

	require.NoError(t, f.engine.Execute(&model.SubmitBracketOrder{
		TraderID:    model.TraderID("TESTER-000"),
		AccountID:   model.AccountID("FXCM-02851908"),
		StrategyID:  testStrategy,
		PositionID:  testPosition,
		Bracket:     bracket,
		CommandMeta: model.NewCommandMeta(stubEpoch),
	}))

	for _, id := range []model.OrderID{entry.ID, stopLoss.ID, takeProfit.ID} {
		positionID, ok := f.db.GetPositionID(id)
		require.True(t, ok, string(id))
		assert.Equal(t, testPosition, positionID)
	}
}

func TestEngine_FillCreatesPositionAndEmitsOpened(t *testing.T) {
	f := newEngineFixture(t)
	order := stubMarketOrder("O-1", model.Buy, "100000")
	f.submit(t, order, testPosition)

	f.engine.HandleEvent(stubSubmitted(order))
	f.engine.HandleEvent(stubAccepted(order))
	f.engine.HandleEvent(stubFill(order, model.Buy, "100000", "1.00001"))

	position, ok := f.db.GetPosition(testPosition)
	require.True(t, ok)
	assert.Equal(t, "100000", position.Quantity().String())
	assert.True(t, f.db.IsPositionOpen(testPosition))

	var opened *model.PositionOpened
	for _, event := range f.strategy.events {
		if e, ok := event.(model.PositionOpened); ok {
			opened = &e
		}
	}
	require.NotNil(t, opened, "strategy must receive PositionOpened")
	assert.Equal(t, testPosition, opened.Position.ID)
	assert.Equal(t, testStrategy, opened.StrategyID)
}

func TestEngine_ClosingFillEmitsPositionClosed(t *testing.T) {
	f := newEngineFixture(t)
	buy := stubMarketOrder("O-1", model.Buy, "100000")
	f.submit(t, buy, testPosition)
	f.engine.HandleEvent(stubSubmitted(buy))
	f.engine.HandleEvent(stubAccepted(buy))
	f.engine.HandleEvent(stubFill(buy, model.Buy, "100000", "1.00000"))

	sell := stubMarketOrder("O-2", model.Sell, "100000")
	f.submit(t, sell, testPosition)
	f.engine.HandleEvent(stubSubmitted(sell))
	f.engine.HandleEvent(stubAccepted(sell))
	f.engine.HandleEvent(stubFill(sell, model.Sell, "100000", "1.00010"))

	assert.True(t, f.db.IsPositionClosed(testPosition))

	var closed *model.PositionClosed
	for _, event := range f.strategy.events {
		if e, ok := event.(model.PositionClosed); ok {
			closed = &e
		}
	}
	require.NotNil(t, closed)
	assert.Equal(t, "10.00 USD", closed.Position.RealizedPnl().String())
}

func TestEngine_InvalidStateTriggerDroppedAndLogged(t *testing.T) {
	f := newEngineFixture(t)
	order := stubLimitOrder("O-1", model.Buy, "100000", "1.00000")
	f.submit(t, order, testPosition)
	f.engine.HandleEvent(stubSubmitted(order))
	f.engine.HandleEvent(stubAccepted(order))
	f.engine.HandleEvent(stubWorking(order))
	require.Equal(t, model.OrderStateWorking, order.State())
	eventsBefore := order.EventCount()
	errorsBefore := f.logger.CountAtLevel("ERROR")

	// A second OrderAccepted is illegal from WORKING.
	f.engine.HandleEvent(stubAccepted(order))

	assert.Equal(t, model.OrderStateWorking, order.State(), "state unchanged")
	assert.Equal(t, eventsBefore, order.EventCount(), "event not recorded")
	assert.Equal(t, errorsBefore+1, f.logger.CountAtLevel("ERROR"), "an ERROR is logged")
	assert.True(t, f.db.IsOrderWorking(order.ID), "order stays in the working set")
}

func TestEngine_EventForUnknownOrderDropped(t *testing.T) {
	f := newEngineFixture(t)
	ghost := stubMarketOrder("O-404", model.Buy, "100000")

	f.engine.HandleEvent(stubSubmitted(ghost))

	assert.Equal(t, 1, f.logger.CountAtLevel("ERROR"))
	assert.Empty(t, f.strategy.events)
}

func TestEngine_CancelRejectDeliveredWithoutFSMTouch(t *testing.T) {
	f := newEngineFixture(t)
	order := stubLimitOrder("O-1", model.Buy, "100000", "1.00000")
	f.submit(t, order, testPosition)
	f.engine.HandleEvent(stubSubmitted(order))

	reject := model.OrderCancelReject{
		AccountID:          model.AccountID("FXCM-02851908"),
		OrderID:            order.ID,
		RejectedTime:       stubEpoch,
		RejectedResponseTo: "CancelOrder",
		RejectedReason:     "order not found",
		EventMeta:          model.NewEventMeta(stubEpoch),
	}
	f.engine.HandleEvent(reject)

	assert.Equal(t, model.OrderStateSubmitted, order.State(), "FSM untouched")
	require.NotEmpty(t, f.strategy.events)
	_, ok := f.strategy.events[len(f.strategy.events)-1].(model.OrderCancelReject)
	assert.True(t, ok, "strategy receives the cancel reject")
}

func TestEngine_AccountStateCreatesThenApplies(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(stubAccountState("FXCM-02851908"))
	account, ok := f.engine.Account()
	require.True(t, ok)
	assert.Equal(t, model.AccountID("FXCM-02851908"), account.ID)
	assert.Equal(t, 1, account.EventCount())

	f.engine.HandleEvent(stubAccountState("FXCM-02851908"))
	assert.Equal(t, 2, account.EventCount())

	warnsBefore := f.logger.CountAtLevel("WARN")
	f.engine.HandleEvent(stubAccountState("OTHER-999"))
	assert.Equal(t, warnsBefore+1, f.logger.CountAtLevel("WARN"), "mismatched account warned and dropped")
}

func TestEngine_AccountEventForWrongIDBeforeCreationDropped(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.HandleEvent(stubAccountState("OTHER-999"))
	_, ok := f.engine.Account()
	assert.False(t, ok)
	assert.Equal(t, 1, f.logger.CountAtLevel("WARN"))
}

func TestEngine_ResetIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	f.submit(t, stubMarketOrder("O-1", model.Buy, "100000"), testPosition)
	require.Equal(t, 1, f.engine.CommandCount())

	f.engine.Reset()
	assert.Equal(t, 0, f.engine.CommandCount())
	assert.Equal(t, 0, f.db.CountOrdersTotal())

	// Second reset with nothing in between is a no-op.
	f.engine.Reset()
	assert.Equal(t, 0, f.engine.CommandCount())
}
