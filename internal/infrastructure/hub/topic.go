package hub

import (
	"strings"
)

type TopicKind string

const (
	TopicBus      TopicKind = "bus"
	TopicTrip     TopicKind = "trip"
	TopicRoute    TopicKind = "route"
	TopicAllBuses TopicKind = "all_buses"
	TopicAllTrips TopicKind = "all_trips"
)

// Topic names a broadcast group. Entity topics carry the entity id; blanket
// topics (all_buses, all_trips) never do.
type Topic struct {
	Kind TopicKind
	ID   string
}

var (
	AllBusesTopic = Topic{Kind: TopicAllBuses}
	AllTripsTopic = Topic{Kind: TopicAllTrips}
)

func BusTopic(busID string) Topic     { return Topic{Kind: TopicBus, ID: busID} }
func TripTopic(tripID string) Topic   { return Topic{Kind: TopicTrip, ID: tripID} }
func RouteTopic(routeID string) Topic { return Topic{Kind: TopicRoute, ID: routeID} }

func (k TopicKind) isEntity() bool {
	return k == TopicBus || k == TopicTrip || k == TopicRoute
}

func (k TopicKind) isBlanket() bool {
	return k == TopicAllBuses || k == TopicAllTrips
}

// String renders the topic as "bus:BUS001" or "all_buses".
func (t Topic) String() string {
	if t.Kind.isBlanket() {
		return string(t.Kind)
	}
	return string(t.Kind) + ":" + t.ID
}

func (t Topic) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTopic builds a topic from the type/id pair of a subscribe request.
// ok is false for unknown kinds and for entity kinds without an id; callers
// ignore such requests.
func ParseTopic(kind, id string) (Topic, bool) {
	k := TopicKind(strings.TrimSpace(kind))
	id = strings.TrimSpace(id)

	switch {
	case k.isBlanket():
		return Topic{Kind: k}, true
	case k.isEntity() && id != "":
		return Topic{Kind: k, ID: id}, true
	default:
		return Topic{}, false
	}
}

// ParseTopicName is the inverse of Topic.String.
func ParseTopicName(name string) (Topic, bool) {
	kind, id, _ := strings.Cut(name, ":")
	return ParseTopic(kind, id)
}
