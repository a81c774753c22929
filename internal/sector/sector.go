// Package sector resolves the ordered list of sectors to sweep.
package sector

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-cli/internal/config"
)

// Defaults are the Italian manufacturing sectors swept when nothing else
// is configured.
var Defaults = []string{
	"Ferramenta",
	"Cantieri nautici",
	"Officine meccaniche generiche",
	"Utensilerie",
	"Carpenterie metalliche",
	"Fonderie / fusioni",
	"Stampaggio e deformazione metalli",
	"Trattamenti superficiali (verniciatura, zincatura, sabbiatura, ecc.)",
	"Macchine utensili e strumenti di precisione",
	"Automazione industriale / robotica",
	"Produzione di impianti / installazioni industriali",
	"Elettromeccanica / componentistica elettrica",
	"Settore trasporti correlati (componentistica per auto, ferroviario, aeronautico)",
	"Industria navale specializzata",
	"Oleodinamica / idraulica / pneumatici",
}

// file is the YAML shape of a sectors file. A bare list is accepted too.
type file struct {
	Sectors []string `yaml:"sectors"`
}

// Load reads a sectors file. It accepts either a top-level YAML list or a
// mapping with a "sectors" key.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sector: read %s", path)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		var f file
		if err2 := yaml.Unmarshal(data, &f); err2 != nil {
			return nil, eris.Wrapf(err2, "sector: parse %s", path)
		}
		list = f.Sectors
	}

	list = Normalize(list)
	if len(list) == 0 {
		return nil, eris.Errorf("sector: %s lists no sectors", path)
	}
	return list, nil
}

// Resolve picks the sector list by precedence: explicit overrides, then
// sectors.file, then sectors.list, then Defaults.
func Resolve(cfg config.SectorsConfig, overrides []string) ([]string, error) {
	if list := Normalize(overrides); len(list) > 0 {
		return list, nil
	}
	if cfg.File != "" {
		return Load(cfg.File)
	}
	if list := Normalize(cfg.List); len(list) > 0 {
		return list, nil
	}
	return append([]string(nil), Defaults...), nil
}

// Normalize trims entries and drops blanks and repeats, keeping order.
func Normalize(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
