package profile

// LogUtilisateur carries a generic back-reference (content_type + object_id
// resolved through content_object) and a single logging entry point.
func logUtilisateur() *Profile {
	return &Profile{
		Name:               "LogUtilisateur",
		RequiredFields:     []string{"content_type", "object_id", "content_object", "action", "details"},
		RequiredProperties: []string{},
		RequiredMethods:    []string{"log_action"},
	}
}
