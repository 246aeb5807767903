package domain

// Category is a read-only quiz classification.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var categories = []Category{
	{ID: 1, Name: "Sport", Description: "Football, tennis, olympics and every other discipline."},
	{ID: 2, Name: "Musique", Description: "Artists, albums and the history of music."},
	{ID: 3, Name: "Jeux-vidéos", Description: "Consoles, franchises and gaming culture."},
	{ID: 4, Name: "Informatique", Description: "Programming, hardware and the internet."},
	{ID: 5, Name: "Culture générale", Description: "A bit of everything."},
}

// Categories returns a copy of the static category table.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByID looks up a category in the static table.
func CategoryByID(id int) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryName returns the category name, or an empty string for unknown ids.
func CategoryName(id int) string {
	c, _ := CategoryByID(id)
	return c.Name
}
