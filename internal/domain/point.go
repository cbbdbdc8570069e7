package domain

// Coordinates are immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// CoordsToList returns coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Point is a single geographic record handled by the engine.
// It carries an identifier, a location, and any remaining input fields
// verbatim. Points are immutable once loaded.
type Point struct {
	ID     string
	Coords Coordinates
	// Attrs holds every input field other than longitude/latitude, keyed by
	// column name. The engine never reads or rewrites these.
	Attrs map[string]string
}

// Worker is a capacity-bounded destination for point assignment.
// Capacity 0 means unbounded.
type Worker struct {
	ID       string
	Coords   Coordinates
	Capacity int
}
