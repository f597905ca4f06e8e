package schema

// DefaultTables describes the disease-surveillance schema the admin ships
// with. Registration order is the order tables appear in the UI selector.
func DefaultTables() []TableSchema {
	return []TableSchema{
		{Name: "DiseaseType", PrimaryKeys: []string{"id"}},
		{Name: "Country", PrimaryKeys: []string{"cname"}},
		{
			Name:        "Disease",
			PrimaryKeys: []string{"disease_code"},
			ForeignKeys: map[string]string{"id": "DiseaseType"},
		},
		{
			Name:        "Discover",
			PrimaryKeys: []string{"cname", "disease_code"},
			ForeignKeys: map[string]string{"cname": "Country", "disease_code": "Disease"},
		},
		{
			Name:        "Users",
			PrimaryKeys: []string{"email"},
			ForeignKeys: map[string]string{"cname": "Country"},
		},
		{
			Name:        "PublicServant",
			PrimaryKeys: []string{"email"},
			ForeignKeys: map[string]string{"email": "Users"},
		},
		{
			Name:        "Doctor",
			PrimaryKeys: []string{"email"},
			ForeignKeys: map[string]string{"email": "Users"},
		},
		{
			Name:        "Specialize",
			PrimaryKeys: []string{"id", "email"},
			ForeignKeys: map[string]string{"id": "DiseaseType", "email": "Doctor"},
		},
		{
			Name:        "Record",
			PrimaryKeys: []string{"email", "cname", "disease_code"},
			ForeignKeys: map[string]string{
				"email":        "PublicServant",
				"cname":        "Country",
				"disease_code": "Disease",
			},
		},
	}
}

// Default returns the registry built from DefaultTables. The built-in tables
// are known to be valid, so a failure here is a programming error.
func Default() *Registry {
	r, err := NewRegistry(DefaultTables())
	if err != nil {
		panic(err)
	}
	return r
}
