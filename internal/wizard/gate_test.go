package wizard

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"medcenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCreator struct {
	mock.Mock
}

func (m *mockCreator) Create(ctx context.Context, req models.AppointmentRequest) (*models.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmitResult), args.Error(1)
}

func completedFlow(t *testing.T) (*Sequencer[*models.AppointmentDraft], *models.AppointmentDraft) {
	t.Helper()
	seq := NewAppointmentSequencer(testRules())
	draft := models.NewAppointmentDraft(&models.Identity{Name: "Priya", Email: "priya@example.com"})
	for s := 1; s < seq.Len(); s++ {
		fillAppointmentStep(draft, s)
		require.NoError(t, seq.Advance(draft))
	}
	return seq, draft
}

func TestGate_ScenarioA_Success(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	before := *draft
	creator := new(mockCreator)
	creator.On("Create", ctx, AppointmentRequest(draft)).
		Return(&models.SubmitResult{StatusCode: http.StatusCreated, Success: true, ID: 41}, nil).Once()

	gate := NewAppointmentGate(creator, "/appointments")
	out, err := gate.Submit(ctx, seq, draft)
	require.NoError(t, err)
	assert.Equal(t, "/appointments", out.Redirect)
	assert.Equal(t, int64(41), out.ID)
	assert.NotEmpty(t, out.Message)
	assert.Equal(t, before, *draft, "payload comes from the draft unmodified")
	creator.AssertExpectations(t)
}

func TestGate_ScenarioC_ApplicationFailure(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	before := *draft
	creator := new(mockCreator)
	creator.On("Create", ctx, mock.Anything).
		Return(&models.SubmitResult{StatusCode: http.StatusOK, Success: false, Error: "slot unavailable"}, nil).Twice()

	gate := NewAppointmentGate(creator, "")
	_, err := gate.Submit(ctx, seq, draft)
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "slot unavailable", UserMessage(err))
	assert.Equal(t, 6, seq.Current())
	assert.Equal(t, before, *draft)

	// manual resubmission performs the same single call again
	_, err = gate.Submit(ctx, seq, draft)
	require.Error(t, err)
	creator.AssertNumberOfCalls(t, "Create", 2)
}

func TestGate_NonOKStatus(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	creator := new(mockCreator)
	creator.On("Create", ctx, mock.Anything).
		Return(&models.SubmitResult{StatusCode: http.StatusInternalServerError}, nil).Once()

	_, err := NewAppointmentGate(creator, "").Submit(ctx, seq, draft)
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, ConnectivityMessage, appErr.Message)
}

func TestGate_CreatedWithoutBody(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	creator := new(mockCreator)
	creator.On("Create", ctx, mock.Anything).
		Return(&models.SubmitResult{StatusCode: http.StatusCreated}, nil).Once()

	_, err := NewAppointmentGate(creator, "").Submit(ctx, seq, draft)
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ConnectivityMessage, UserMessage(err))
	assert.Equal(t, 6, seq.Current())
}

func TestGate_TransportFailure(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	cause := errors.New("connection refused")
	creator := new(mockCreator)
	creator.On("Create", ctx, mock.Anything).Return(nil, cause).Once()

	_, err := NewAppointmentGate(creator, "").Submit(ctx, seq, draft)
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ConnectivityMessage, UserMessage(err))
}

func TestGate_RefusesBeforeReview(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	seq.Retreat()
	creator := new(mockCreator)

	_, err := NewAppointmentGate(creator, "").Submit(ctx, seq, draft)
	assert.ErrorIs(t, err, ErrNotOnReviewStep)
	creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGate_RevalidatesEarlierSteps(t *testing.T) {
	ctx := context.Background()
	seq, draft := completedFlow(t)
	draft.City = " "
	creator := new(mockCreator)

	_, err := NewAppointmentGate(creator, "").Submit(ctx, seq, draft)
	assert.Equal(t, MsgContactDetails, UserMessage(err))
	creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatorFunc(t *testing.T) {
	var got models.DiagnosticBookingRequest
	c := CreatorFunc[models.DiagnosticBookingRequest](func(_ context.Context, req models.DiagnosticBookingRequest) (*models.SubmitResult, error) {
		got = req
		return &models.SubmitResult{StatusCode: 201, Success: true, Reference: "PAY-1"}, nil
	})

	seq := NewDiagnosticsSequencer(testRules())
	draft := &models.DiagnosticsDraft{
		TestIDs: []int64{5}, PatientName: "Lee", Phone: "1",
		Date: fixedNow, TimeSlot: "09:00 AM", PaymentMethod: "upi",
	}
	for !seq.IsTerminal() {
		require.NoError(t, seq.Advance(draft))
	}
	out, err := NewDiagnosticsGate(c, "/diagnostics").Submit(context.Background(), seq, draft)
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", out.Reference)
	assert.Equal(t, []int64{5}, got.TestIDs)
}
