package catalog

// The remote catalog's category taxonomy is stable enough to ship as
// static configuration rather than fetch at runtime.

type Category struct {
	Id   int64
	Name string
}

type CategoryGroup struct {
	Name       string
	Categories []Category
}

var categoryGroups = []CategoryGroup{
	{
		Name: "Repackers",
		Categories: []Category{
			{Id: 577, Name: "DODI"},
			{Id: 487, Name: "ElAmigos"},
			{Id: 33, Name: "Epic Games"},
			{Id: 1229, Name: "CS.RIN.RU"},
		},
	},
	{
		Name: "Years",
		Categories: []Category{
			{Id: 26, Name: "2024"},
			{Id: 1165, Name: "2025"},
			{Id: 1844, Name: "2026"},
		},
	},
	{
		Name: "Genres",
		Categories: []Category{
			{Id: 27, Name: "Action"},
			{Id: 29, Name: "Adventure"},
			{Id: 31, Name: "Casual"},
		},
	},
}

func CategoryGroups() []CategoryGroup {
	return categoryGroups
}

func CategoryName(id int64) (string, bool) {
	for _, group := range categoryGroups {
		for _, category := range group.Categories {
			if category.Id == id {
				return category.Name, true
			}
		}
	}
	return "", false
}
