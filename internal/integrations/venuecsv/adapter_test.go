package venuecsv

import (
    "strings"
    "testing"
)

func TestLoadVenues(t *testing.T) {
    feed := "name,address,latitude,longitude,place_id\n" +
        "Carmine's,\"200 W 44th St, New York, NY\",40.7561,-73.9870,ChIJcarmines\n" +
        "Majestic Theatre,\"245 W 44th St, New York, NY\",40.7588,-73.9875,\n"
    recs, err := Adapter{}.Load(strings.NewReader(feed))
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if len(recs) != 2 {
        t.Fatalf("records = %d, want 2", len(recs))
    }
    if recs[0].Name != "Carmine's" || recs[0].PlaceID != "ChIJcarmines" {
        t.Errorf("unexpected first record: %+v", recs[0])
    }
    if recs[1].Latitude != 40.7588 || recs[1].PlaceID != "" {
        t.Errorf("unexpected second record: %+v", recs[1])
    }
}

func TestLoadVenuesColumnOrder(t *testing.T) {
    feed := "longitude,latitude,name\n-73.99,40.71,Stop B\n"
    recs, err := Adapter{}.Load(strings.NewReader(feed))
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if recs[0].Name != "Stop B" || recs[0].Longitude != -73.99 {
        t.Errorf("unexpected record: %+v", recs[0])
    }
}

func TestLoadVenuesMissingColumn(t *testing.T) {
    if _, err := (Adapter{}).Load(strings.NewReader("name,address\nX,Y\n")); err == nil {
        t.Fatal("expected error for missing latitude column")
    }
}

func TestLoadVenuesBadCoordinate(t *testing.T) {
    feed := "name,latitude,longitude\nX,forty,-73.99\n"
    if _, err := (Adapter{}).Load(strings.NewReader(feed)); err == nil {
        t.Fatal("expected error for unparseable latitude")
    }
}
