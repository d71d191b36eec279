package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/location"
)

type recordingIngestor struct {
	inputs []location.FixInput
	err    error
}

func (r *recordingIngestor) Ingest(ctx context.Context, in location.FixInput) (location.Fix, error) {
	if _, ok := ctx.Deadline(); !ok {
		return location.Fix{}, errors.New("missing deadline")
	}
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return location.Fix{}, r.err
	}
	return location.Fix{ID: 1, TrackID: in.TrackID}, nil
}

func newTestIngestor(rec *recordingIngestor) *Ingestor {
	return &Ingestor{ingestor: rec, timeout: time.Second, logger: zap.NewNop()}
}

func TestIngestor_TrackIDFromTopic(t *testing.T) {
	rec := &recordingIngestor{}
	i := newTestIngestor(rec)

	err := i.handle("tracking/bus7/location", []byte(`{"lat":52.1,"lng":4.3,"speed":12}`))

	require.NoError(t, err)
	require.Len(t, rec.inputs, 1)
	assert.Equal(t, "bus7", rec.inputs[0].TrackID)
	assert.Equal(t, 52.1, *rec.inputs[0].Lat)
	assert.Equal(t, 12.0, *rec.inputs[0].Speed)
}

func TestIngestor_PayloadTrackIDWins(t *testing.T) {
	rec := &recordingIngestor{}
	i := newTestIngestor(rec)

	require.NoError(t, i.handle("tracking/bus7/location", []byte(`{"trackId":"bus9","lat":0,"lng":0}`)))

	assert.Equal(t, "bus9", rec.inputs[0].TrackID)
}

func TestIngestor_BadPayload(t *testing.T) {
	rec := &recordingIngestor{}
	i := newTestIngestor(rec)

	assert.Error(t, i.handle("tracking/bus7/location", []byte(`not json`)))
	assert.Empty(t, rec.inputs)
}

func TestIngestor_PropagatesIngestError(t *testing.T) {
	rec := &recordingIngestor{err: &apperr.ValidationError{Field: "lat", Reason: "is required"}}
	i := newTestIngestor(rec)

	err := i.handle("tracking/bus7/location", []byte(`{"lng":1}`))

	assert.True(t, apperr.IsValidation(err))
}

func TestTrackIDFromTopic(t *testing.T) {
	assert.Equal(t, "abc", trackIDFromTopic("tracking/abc/location"))
	assert.Equal(t, "", trackIDFromTopic("tracking"))
	assert.Equal(t, "", trackIDFromTopic("tracking/abc"))
}
