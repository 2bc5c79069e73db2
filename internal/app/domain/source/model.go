package source

// Source is an upstream data provider (exchange, DEX) facts are collected from.
type Source struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Network         string `json:"network"`
	Recipient       string `json:"recipient"`
	Sender          string `json:"sender"`
	Type            string `json:"type"`
	Website         string `json:"website"`
	ImagePath       string `json:"image_path"`
	BackgroundColor string `json:"background_color"`
	Status          string `json:"-"`
}

// StatusActive marks sources still feeding facts.
const StatusActive = "active"
