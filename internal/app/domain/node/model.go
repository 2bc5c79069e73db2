package node

// Node is an oracle node that co-signs facts.
type Node struct {
	ID              string `json:"id"`
	NodeURN         string `json:"node_urn"`
	Network         string `json:"network"`
	Status          string `json:"status"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	AddressLocality string `json:"address_locality,omitempty"`
	AddressRegion   string `json:"address_region,omitempty"`
	GeoCoordinates  string `json:"geo_coordinates,omitempty"`
}
