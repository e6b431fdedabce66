package profile

func vae() *Profile {
	return &Profile{
		Name:               "VAE",
		RequiredFields:     []string{"centre", "reference", "statut", "date_creation"},
		RequiredProperties: []string{"is_en_cours", "is_terminee", "duree_statut_actuel"},
		RequiredMethods:    []string{"changer_statut", "dernier_changement_statut"},
	}
}
