package telemetry

import (
	"testing"
	"time"

	"github.com/mainflux/senml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSample(t *testing.T) {
	before := float64(time.Now().UnixNano()) / float64(time.Second)
	sample := BuildSample()
	after := float64(time.Now().UnixNano()) / float64(time.Second)

	records := sample.Pack.Records
	require.Len(t, records, 3)

	assert.Equal(t, "temperature", records[0].Name)
	assert.Equal(t, "degree-c", records[0].Unit)
	assert.Equal(t, "humidity", records[1].Name)
	assert.Equal(t, "percents", records[1].Unit)
	assert.Equal(t, "heart-rate", records[2].Name)
	assert.Equal(t, "bpm", records[2].Unit)

	for _, rec := range records {
		require.NotNil(t, rec.Value, "%s must carry a value", rec.Name)
	}
	assert.GreaterOrEqual(t, *records[0].Value, 20.0)
	assert.LessOrEqual(t, *records[0].Value, 30.0)

	assert.GreaterOrEqual(t, sample.BaseTime(), before)
	assert.LessOrEqual(t, sample.BaseTime(), after)
}

func TestBuildSample_SuccessiveSamplesDiffer(t *testing.T) {
	a := BuildSample()
	time.Sleep(time.Millisecond)
	b := BuildSample()

	assert.NotEqual(t, a.BaseTime(), b.BaseTime(), "base time must be fresh per sample")
	assert.NotEqual(t, *a.Pack.Records[0].Value, *b.Pack.Records[0].Value,
		"values are jittered so samples differ beyond the timestamp")
}

func TestSampleEncode(t *testing.T) {
	sample := BuildSample()

	data, err := sample.Encode()
	require.NoError(t, err)

	decoded, err := senml.Decode(data, senml.JSON)
	require.NoError(t, err)
	assert.Len(t, decoded.Records, 3)
}

func TestSampleBaseTime_Empty(t *testing.T) {
	assert.Zero(t, Sample{}.BaseTime())
}
