package title

import (
	"testing"
	"time"
)

func ts(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func pasila() Params {
	return Params{
		Title:            "Vanhempainyhdistys",
		PublishTimestamp: ts("2018-04-12T16:30:45+02:00"),
		SeriesTitle:      "Pasila",
		Subheading:       "tekstitys englanniksi",
		ProgramID:        "1-86743",
		Season:           1,
		Episode:          3,
	}
}

func TestFormatDefaults(t *testing.T) {
	f := NewFormatter("")
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{"title only", Params{Title: "test"}, "test"},
		{
			"title with timestamp",
			Params{Title: "test", PublishTimestamp: ts("2018-01-02T03:04:05Z")},
			"test-2018-01-02T03:04",
		},
		{
			"date only timestamp",
			Params{Title: "test", PublishTimestamp: ts("2018-01-02T00:00:00Z"), DateOnly: true},
			"test-2018-01-02",
		},
		{
			"repeated main title",
			Params{Title: "Uutiset: Uutiset iltapäivällä"},
			"Uutiset iltapäivällä",
		},
		{
			"subheading",
			Params{Title: "EM-kisat", Subheading: "Kymmenottelu"},
			"EM-kisat: Kymmenottelu",
		},
		{
			"no repeated subheading",
			Params{Title: "Uutiset: Kymmenen uutiset", Subheading: "Uutiset"},
			"Uutiset: Kymmenen uutiset",
		},
		{
			"season and episode",
			Params{Title: "Isänmaan toivot", Season: 2, Episode: 6},
			"Isänmaan toivot: S02E06",
		},
		{
			"episode without season",
			Params{Title: "Isänmaan toivot", Episode: 12},
			"Isänmaan toivot: E12",
		},
		{
			"genre prefix removed",
			Params{Title: "Elokuva: Indiana Jones"},
			"Indiana Jones",
		},
		{
			"series title",
			Params{Title: "Kerblam!", SeriesTitle: "Doctor Who"},
			"Doctor Who: Kerblam!",
		},
		{
			"no repeated series title",
			Params{Title: "Doctor Who", SeriesTitle: "Doctor Who"},
			"Doctor Who",
		},
		{
			"series prefix matches whole words only",
			Params{Title: "Noin viikon studion uusi vuosi", SeriesTitle: "Noin viikon studio"},
			"Noin viikon studio: Noin viikon studion uusi vuosi",
		},
		{
			"series title with subheading",
			Params{Title: "Solsidan", SeriesTitle: "Solsidan", Subheading: "Nya avsnitt från Solsidan"},
			"Solsidan: Nya avsnitt från Solsidan",
		},
		{
			"series title with episode title",
			Params{Title: "Doctor Who: Kerblam!", SeriesTitle: "Doctor Who"},
			"Doctor Who: Kerblam!",
		},
		{
			"age limit stripped",
			Params{Title: "Rantahotelli (S)", SeriesTitle: "Rantahotelli"},
			"Rantahotelli",
		},
		{
			"whitespace stripped",
			Params{Title: " Rantahotelli "},
			"Rantahotelli",
		},
		{
			"series whitespace stripped",
			Params{Title: "Uutiset klo 18", SeriesTitle: " Uutiset "},
			"Uutiset: klo 18",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Format(tt.params); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAllComponents(t *testing.T) {
	want := "Pasila: Vanhempainyhdistys: tekstitys englanniksi: S01E03-2018-04-12T16:30"
	if got := NewFormatter("").Format(pasila()); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatTemplates(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"${series}${title}${episode}${timestamp}", "Pasila: Vanhempainyhdistys: tekstitys englanniksi: S01E03-2018-04-12T16:30"},
		{"${series}${episode}${timestamp}", "Pasila: S01E03-2018-04-12T16:30"},
		{"${title}${timestamp}", "Vanhempainyhdistys: tekstitys englanniksi-2018-04-12T16:30"},
		{"${timestamp}${title}", "2018-04-12T16:30: Vanhempainyhdistys: tekstitys englanniksi"},
		{"${program_id}${series}", "1-86743: Pasila"},
		{"${series}${program_id}", "Pasila-1-86743"},
		{"${series}${date}", "Pasila-2018-04-12"},
		{"${date}${series}", "2018-04-12: Pasila"},
		{"${series}${date}${timestamp}", "Pasila-2018-04-12-2018-04-12T16:30"},
		{"Areena ${series}${episode}", "Areena : Pasila: S01E03"},
		{"${series} Areena${episode}", "Pasila Areena: S01E03"},
		{"${series}${episode} Areena", "Pasila: S01E03 Areena"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			if got := NewFormatter(tt.template).Format(pasila()); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSeriesEqualsMainTitle(t *testing.T) {
	params := Params{Title: "Rantahotelli", SeriesTitle: "Rantahotelli"}

	if got := NewFormatter("${series}").Format(params); got != "" {
		t.Errorf("Format(${series}) = %q, want empty", got)
	}
	if got := NewFormatter("${title}").Format(params); got != "Rantahotelli" {
		t.Errorf("Format(${title}) = %q, want %q", got, "Rantahotelli")
	}
	if got := NewFormatter("${series}${title}").Format(params); got != "Rantahotelli" {
		t.Errorf("Format(${series}${title}) = %q, want %q", got, "Rantahotelli")
	}
}

func TestFormatDollarEscape(t *testing.T) {
	got := NewFormatter("$$${title}").Format(Params{Title: "test"})
	if got != "$: test" {
		t.Errorf("Format() = %q, want %q", got, "$: test")
	}
}

func TestIsConstant(t *testing.T) {
	if NewFormatter("${title}").IsConstant() {
		t.Error("IsConstant() = true for a template with variables")
	}
	if !NewFormatter("output").IsConstant() {
		t.Error("IsConstant() = false for a literal template")
	}
}
