package model

// Method names a coordinator call for user-facing failure messages.
type Method int

const (
	MethodGet Method = iota
	MethodList
	MethodCreate
	MethodUpdate
	MethodDelete
)

func NotFoundMessage(k Kind) string {
	return k.Label() + " non trouvé"
}

func DeletedMessage(k Kind) string {
	return k.Label() + " supprimé avec succès"
}

// FailureMessage is the generic text shown for a server-side failure. The
// underlying cause is logged, never returned.
func FailureMessage(k Kind, m Method) string {
	noun := "du " + string(k)
	switch m {
	case MethodList:
		return "Erreur lors de la recherche des " + k.Table()
	case MethodCreate:
		return "Erreur lors de la création " + noun
	case MethodUpdate:
		return "Erreur lors de la mise à jour " + noun
	case MethodDelete:
		return "Erreur lors de la suppression " + noun
	default:
		return "Erreur lors de la recherche " + noun
	}
}
