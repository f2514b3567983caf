package services

import "summitpass/internal/models"

// standCatalog is the fixed list of sponsor stands carrying scannable
// codes on the event floor. Visits are recorded by stand id; the catalog
// exists so clients can render names, and visiting is not validated
// against it.
var standCatalog = []models.Stand{
	{ID: "STAND1", Name: "Fortinet"},
	{ID: "STAND2", Name: "CATO Networks"},
	{ID: "STAND3", Name: "Microsoft"},
	{ID: "STAND4", Name: "Netskope"},
	{ID: "STAND5", Name: "Splunk"},
	{ID: "STAND6", Name: "Trend Micro"},
	{ID: "STAND7", Name: "Arrow ECS"},
	{ID: "STAND8", Name: "Tech Citadel"},
	{ID: "STAND9", Name: "Cyber Monastery"},
	{ID: "STAND10", Name: "Jardins da Tapada"},
}

// Stands returns the static stand catalog.
func (s *EventService) Stands() []models.Stand {
	out := make([]models.Stand, len(standCatalog))
	copy(out, standCatalog)
	return out
}
