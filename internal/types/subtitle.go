package types

// Subtitle categories used by Areena: ohjelmatekstitys is subtitling for
// the hard of hearing, käännöstekstitys is a translation.
const (
	CategoryHardOfHearing = "ohjelmatekstitys"
	CategoryTranslation   = "käännöstekstitys"
)

// Subtitle is an external subtitle resource. Lang is a three-letter
// language code.
type Subtitle struct {
	URL      string
	Lang     string
	Category string
}
