package profile

func rapport() *Profile {
	return &Profile{
		Name: "Rapport",
		RequiredFields: []string{
			"nom", "type_rapport", "periode", "date_debut", "date_fin", "format", "donnees", "temps_generation",
		},
		RequiredProperties: []string{"duree_jours", "est_personnalise"},
		RequiredMethods:    []string{"to_dict"},
	}
}
