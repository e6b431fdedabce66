package profile

func partenaire() *Profile {
	return &Profile{
		Name: "Partenaire",
		RequiredFields: []string{
			"nom", "type", "secteur_activite", "contact_nom", "contact_email", "contact_telephone",
		},
		RequiredProperties: []string{"has_contact", "full_address"},
		RequiredMethods:    []string{"to_serializable_dict", "get_prospections"},
	}
}

func prospection() *Profile {
	return &Profile{
		Name: "Prospection",
		RequiredFields: []string{
			"partenaire", "formation", "date_prospection", "statut", "objectif", "motif", "responsable",
		},
		RequiredProperties: []string{"is_active", "relance_necessaire"},
		RequiredMethods:    []string{"creer_historique"},
	}
}

func appairage() *Profile {
	return &Profile{
		Name:               "Appairage",
		RequiredFields:     []string{"candidat", "partenaire", "formation", "statut", "date_appairage"},
		RequiredProperties: []string{"est_actif"},
		RequiredMethods:    []string{"set_user", "to_serializable_dict"},
	}
}

func candidat() *Profile {
	return &Profile{
		Name:               "Candidat",
		RequiredFields:     []string{"nom", "prenom", "email", "centre", "formation", "statut"},
		RequiredProperties: []string{"nom_complet", "age"},
		RequiredMethods:    []string{"to_serializable_dict"},
	}
}
