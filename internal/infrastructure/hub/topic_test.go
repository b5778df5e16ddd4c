package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		kind, id string
		want     Topic
		ok       bool
	}{
		{"bus", "BUS001", BusTopic("BUS001"), true},
		{"trip", " TRIP9 ", TripTopic("TRIP9"), true},
		{"route", "R01", RouteTopic("R01"), true},
		{"all_buses", "", AllBusesTopic, true},
		{"all_trips", "ignored", AllTripsTopic, true},
		{"bus", "", Topic{}, false},
		{"depot", "D1", Topic{}, false},
		{"", "", Topic{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTopic(tt.kind, tt.id)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.kind, tt.id)
		assert.Equal(t, tt.want, got, "%s/%s", tt.kind, tt.id)
	}
}

func TestTopic_StringRoundTrip(t *testing.T) {
	for _, topic := range []Topic{BusTopic("BUS001"), TripTopic("T-1"), RouteTopic("R01"), AllBusesTopic, AllTripsTopic} {
		parsed, ok := ParseTopicName(topic.String())
		assert.True(t, ok, topic.String())
		assert.Equal(t, topic, parsed)
	}

	assert.Equal(t, "bus:BUS001", BusTopic("BUS001").String())
	assert.Equal(t, "all_trips", AllTripsTopic.String())
}
