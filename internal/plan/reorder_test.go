package plan

import (
    "testing"

    "showplan/internal/model"
)

// crossingItinerary visits four venues on a straight line in the order
// A, C, B, D, doubling back between the middle stops.
func crossingItinerary() model.Itinerary {
    return model.Itinerary{
        Name: "Crossing Tour",
        Venues: []model.Venue{
            {Name: "A", Latitude: 40.70, Longitude: -73.99, OpeningHours: "9:00 AM - 11:00 PM"},
            {Name: "B", Latitude: 40.71, Longitude: -73.99, OpeningHours: "9:00 AM - 11:00 PM"},
            {Name: "C", Latitude: 40.72, Longitude: -73.99, OpeningHours: "9:00 AM - 11:00 PM"},
            {Name: "D", Latitude: 40.73, Longitude: -73.99, OpeningHours: "9:00 AM - 11:00 PM"},
        },
        Events: []model.Event{
            {ID: "e1", Name: "Stop A", VenueName: "A", StartTime: ts(10, 0), EndTime: ts(11, 0)},
            {ID: "e2", Name: "Stop C", VenueName: "C", StartTime: ts(12, 0), EndTime: ts(13, 0)},
            {ID: "e3", Name: "Stop B", VenueName: "B", StartTime: ts(14, 0), EndTime: ts(15, 30)},
            {ID: "e4", Name: "Stop D", VenueName: "D", StartTime: ts(17, 0), EndTime: ts(18, 0)},
        },
    }
}

func TestImproveVisitOrderUncrosses(t *testing.T) {
    it := crossingItinerary()
    events := sortedEvents(it.Events)
    order := improveVisitOrder(&it, events, 4)
    want := []int{0, 2, 1, 3}
    for i, v := range order {
        if v != want[i] {
            t.Fatalf("order = %v, want %v", order, want)
        }
    }
}

func TestImproveVisitOrderKeepsShortSchedules(t *testing.T) {
    it := broadwayItinerary()
    events := sortedEvents(it.Events)
    if order := improveVisitOrder(&it, events, 4); !isIdentityOrder(order) {
        t.Errorf("two-stop schedule reordered: %v", order)
    }
}

func TestReslotEventsKeepsSlotsAndDurations(t *testing.T) {
    it := crossingItinerary()
    events := sortedEvents(it.Events)
    out := reslotEvents(events, []int{0, 2, 1, 3})
    if out[1].ID != "e3" || out[2].ID != "e2" {
        t.Fatalf("unexpected sequence: %s, %s", out[1].ID, out[2].ID)
    }
    // e3 takes the second slot's start and keeps its 90 minute length.
    if out[1].StartTime != ts(12, 0) || out[1].EndTime != ts(13, 30) {
        t.Errorf("slot 1 = %s - %s", out[1].StartTime, out[1].EndTime)
    }
    if out[2].StartTime != ts(14, 0) || out[2].EndTime != ts(15, 0) {
        t.Errorf("slot 2 = %s - %s", out[2].StartTime, out[2].EndTime)
    }
}
