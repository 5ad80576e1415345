package telemetry

import (
	"math/rand"
	"time"

	"github.com/mainflux/senml"
)

// Sample is one synthetic point-in-time reading set. All records share the
// base time stamped when the sample was built, which makes individual
// samples distinguishable in logs even when published in a tight burst.
type Sample struct {
	Pack senml.Pack
}

// BaseTime returns the shared record timestamp, in seconds since the epoch.
func (s Sample) BaseTime() float64 {
	if len(s.Pack.Records) == 0 {
		return 0
	}
	return s.Pack.Records[0].BaseTime
}

// Encode serializes the sample's records as SenML JSON.
func (s Sample) Encode() ([]byte, error) {
	return senml.Encode(s.Pack, senml.JSON)
}

// BuildSample produces a synthetic reading set (temperature, humidity,
// heart rate) with a fresh base time. Values are jittered per call so two
// successive samples differ in more than their timestamp.
func BuildSample() Sample {
	temperature := 20 + rand.Float64()*10 // 20-30 degree-c
	humidity := 40 + rand.Float64()*50    // 40-90 percents
	heartRate := 60 + rand.Float64()*60   // 60-120 bpm

	return Sample{
		Pack: senml.Pack{
			Records: []senml.Record{
				{
					BaseTime: float64(time.Now().UnixNano()) / float64(time.Second),
					Name:     "temperature",
					Unit:     "degree-c",
					Value:    &temperature,
				},
				{
					Name:  "humidity",
					Unit:  "percents",
					Value: &humidity,
				},
				{
					Name:  "heart-rate",
					Unit:  "bpm",
					Value: &heartRate,
				},
			},
		},
	}
}
