package profile

func centre() *Profile {
	return &Profile{
		Name:               "Centre",
		RequiredFields:     []string{"nom", "code_postal", "objectif_annuel_prepa", "objectif_annuel_jury"},
		RequiredProperties: []string{"full_address"},
		RequiredMethods:    []string{"to_serializable_dict"},
	}
}

func typeOffre() *Profile {
	return &Profile{
		Name:               "TypeOffre",
		RequiredFields:     []string{"nom", "autre", "couleur"},
		RequiredProperties: []string{"is_personnalise"},
		RequiredMethods:    []string{"get_nom_display", "text_color"},
	}
}

func statut() *Profile {
	return &Profile{
		Name:               "Statut",
		RequiredFields:     []string{"nom", "couleur", "description_autre"},
		RequiredProperties: []string{"badge_html"},
		RequiredMethods:    []string{"get_nom_display", "get_badge_color"},
	}
}
