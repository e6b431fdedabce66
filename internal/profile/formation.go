package profile

func formation() *Profile {
	return &Profile{
		Name: "Formation",
		RequiredFields: []string{
			"nom", "centre", "type_offre", "statut", "start_date", "end_date",
			"prevus_crif", "prevus_mp", "inscrits_crif", "inscrits_mp", "cap",
		},
		RequiredProperties: []string{
			"total_places", "total_inscrits", "places_disponibles",
			"taux_saturation", "taux_transformation",
		},
		RequiredMethods: []string{
			"to_serializable_dict", "add_commentaire", "add_evenement",
		},
	}
}

func historiqueFormation() *Profile {
	return &Profile{
		Name: "HistoriqueFormation",
		RequiredFields: []string{
			"formation", "action", "champ_modifie", "ancienne_valeur", "nouvelle_valeur",
		},
		RequiredProperties: []string{"resume"},
		RequiredMethods:    []string{"to_serializable_dict"},
	}
}

func commentaire() *Profile {
	return &Profile{
		Name:               "Commentaire",
		RequiredFields:     []string{"formation", "contenu", "saturation"},
		RequiredProperties: []string{"is_recent"},
		RequiredMethods:    []string{"get_content_preview"},
	}
}

func document() *Profile {
	return &Profile{
		Name:               "Document",
		RequiredFields:     []string{"formation", "nom_fichier", "fichier", "type_document", "taille_fichier"},
		RequiredProperties: []string{"extension", "icon_class"},
		RequiredMethods:    []string{"get_file_size_str"},
	}
}

func evenement() *Profile {
	return &Profile{
		Name: "Evenement",
		RequiredFields: []string{
			"formation", "type_evenement", "event_date", "participants_prevus", "participants_reels",
		},
		RequiredProperties: []string{"taux_participation", "status_label"},
		RequiredMethods:    []string{"get_temporal_status"},
	}
}
