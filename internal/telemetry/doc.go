// Package telemetry builds synthetic sensor readings and publishes them on
// the platform's MQTT ingest channel.
//
// Samples are SenML packs (temperature, humidity, heart rate) sharing one
// base timestamp per sample. On the wire each sample travels wrapped with
// the publishing thing's token:
//
//	topic:   things/<thingId>
//	payload: {"token": "<thingToken>", "records": [<senml records>]}
//
// Publish blocks until the broker acknowledges delivery at the configured
// QoS level, which is what lets the orchestrator reason about "N published"
// when it later checks what the live feed observed.
package telemetry
