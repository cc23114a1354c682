package storage

import "github.com/mmynk/splitledger/internal/models"

// SystemCategories are the categories every user can pick. The SQLite
// migration seeds the same rows.
var SystemCategories = []models.Category{
	{ID: "00000000-0000-7000-8000-000000000001", Name: "Food & Dining", Icon: "utensils", Color: "#FF6B6B", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000002", Name: "Transport", Icon: "car", Color: "#4ECDC4", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000003", Name: "Shopping", Icon: "shopping-bag", Color: "#45B7D1", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000004", Name: "Home", Icon: "home", Color: "#96CEB4", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000005", Name: "Social", Icon: "coffee", Color: "#FFEAA7", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000006", Name: "Travel", Icon: "plane", Color: "#DDA0DD", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000007", Name: "Tech", Icon: "smartphone", Color: "#98D8C8", IsSystem: true},
	{ID: "00000000-0000-7000-8000-000000000008", Name: "Other", Icon: "circle", Color: "#95A5A6", IsSystem: true},
}
