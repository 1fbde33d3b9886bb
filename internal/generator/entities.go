package generator

import (
	"fmt"
	"math/rand"
	"strings"
)

// Sample is one generated entity before noising: the surface form, its
// label, and the canonical clean form. Alias is set only for names that
// carry an official alternate name.
type Sample struct {
	Text   string
	Label  string
	Clean  string
	Gender string
	Alias  string
}

var givenNames = []struct {
	name   string
	gender string
}{
	{"Tan Ah Kow", "M"},
	{"Lim Bee Leng", "F"},
	{"Muhammad Faiz Bin Ismail", "M"},
	{"Siti Nurhaliza Binte Rahman", "F"},
	{"Ravi Chandran", "M"},
	{"Priya d/o Subramaniam", "F"},
	{"Vanessa de Souza", "F"},
	{"Marcus Oliveiro", "M"},
	{"Jason Ng Wei Ming", "M"},
	{"Chloe Teo Hui Min", "F"},
	{"Goh Keng Swee", "M"},
	{"Nur Aisyah Binte Hassan", "F"},
	{"Kumar s/o Maniam", "M"},
	{"Wong Mei Ling", "F"},
	{"Daniel Pereira", "M"},
}

var relationships = []struct {
	name   string
	gender string
}{
	{"Mother", "F"},
	{"Father", "M"},
	{"Cousin", "U"},
	{"Grandmother", "F"},
	{"Uncle", "M"},
	{"Auntie", "F"},
	{"Landlord", "U"},
	{"Colleague", "U"},
	{"Boss", "U"},
	{"Neighbour", "U"},
	{"Tutor", "U"},
	{"Doctor", "U"},
	{"Roommate", "U"},
	{"Client", "U"},
}

// aliasPairs are primary-name/official-alias pairings: dialect versus
// pinyin romanizations, English aliases, and maiden names.
var aliasPairs = []struct {
	name   string
	alias  string
	gender string
}{
	{"Wong Ah Lam", "Huang Yalin", "F"},
	{"Ooi Choon Seng", "Huang Chuncheng", "M"},
	{"Goh Bee Leng", "Michelle Goh", "F"},
	{"Lim Jia Hui", "Rachel Lim", "F"},
	{"Lee Meng Choo", "Li Mingzhu", "F"},
	{"Teo Kim Huat", "Zhang Jinfa", "M"},
	{"Tan Li Ling", "Lim Li Ling", "F"},
	{"Lucas Fernandes", "Lucas John", "M"},
}

var salutations = []struct {
	name   string
	gender string
}{
	{"Mr", "M"},
	{"Mrs", "F"},
	{"Ms", "F"},
	{"Miss", "F"},
	{"Mdm", "F"},
	{"Missus", "F"},
	{"Dr", "U"},
}

// countries carry the full name plus ISO alpha-2 and alpha-3 codes; any of
// the three can appear as the surface form.
var countries = []struct {
	name, alpha2, alpha3 string
}{
	{"Singapore", "SG", "SGP"},
	{"Malaysia", "MY", "MYS"},
	{"Indonesia", "ID", "IDN"},
	{"Germany", "DE", "DEU"},
	{"United States", "US", "USA"},
	{"Japan", "JP", "JPN"},
	{"Australia", "AU", "AUS"},
	{"India", "IN", "IND"},
	{"New Caledonia", "NC", "NCL"},
}

var airportCodes = []string{
	"SIN", "JFK", "LHR", "HND", "SYD", "CDG", "FRA", "DXB", "ICN", "BKK", "UDR",
}

var platePrefixes = []string{"SBA", "SGX", "SFA", "SJB", "E"}

var organisations = []string{
	"DBS Bank",
	"Singtel",
	"Acme Trading Pte Ltd",
	"NTUC FairPrice",
	"Changi General Hospital",
	"Golden Harvest Logistics",
	"Sunrise Tuition Centre",
	"Keppel Corporation",
	"Raffles Medical Group",
	"Hup Seng Engineering",
}

var emailDomains = []string{
	"gmail.com", "yahoo.com.sg", "hotmail.com", "outlook.com", "singnet.com.sg",
}

var months = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// casingVariant renders a clean form in one of the three surface casings
// the corpus uses.
func casingVariant(rng *rand.Rand, clean string) string {
	switch rng.Intn(3) {
	case 0:
		return strings.ToUpper(clean)
	case 1:
		return strings.ToLower(clean)
	default:
		return clean
	}
}

// sampleName draws a plain name, or an alias-bearing one about a third of
// the time. Alias names render as "primary @ alias" with the alias kept in
// its own field; the clean form is the primary name alone.
func (g *Generator) sampleName() Sample {
	if g.rng.Intn(3) == 0 {
		p := aliasPairs[g.rng.Intn(len(aliasPairs))]
		return Sample{
			Text:   casingVariant(g.rng, p.name+" @ "+p.alias),
			Label:  "name",
			Clean:  p.name,
			Gender: p.gender,
			Alias:  p.alias,
		}
	}
	n := givenNames[g.rng.Intn(len(givenNames))]
	return Sample{
		Text:   casingVariant(g.rng, n.name),
		Label:  "name",
		Clean:  n.name,
		Gender: n.gender,
	}
}

// sampleSalutation picks a title compatible with the given gender; "U"
// accepts any. Gender-neutral titles match either way.
func (g *Generator) sampleSalutation(gender string) Sample {
	var candidates []int
	for i, s := range salutations {
		if gender == "" || gender == "U" || s.gender == "U" || s.gender == gender {
			candidates = append(candidates, i)
		}
	}
	s := salutations[candidates[g.rng.Intn(len(candidates))]]
	return Sample{
		Text:   casingVariant(g.rng, s.name),
		Label:  "salutation",
		Clean:  s.name,
		Gender: s.gender,
	}
}

func (g *Generator) sampleCountry() Sample {
	c := countries[g.rng.Intn(len(countries))]
	forms := []string{c.name, c.alpha2, c.alpha3}
	return Sample{
		Text:  casingVariant(g.rng, forms[g.rng.Intn(len(forms))]),
		Label: "country",
		Clean: c.name,
	}
}

func (g *Generator) sampleAirportCode() Sample {
	code := airportCodes[g.rng.Intn(len(airportCodes))]
	return Sample{
		Text:  casingVariant(g.rng, code),
		Label: "airport_code",
		Clean: code,
	}
}

// samplePlate generates a Singapore vehicle plate. The clean form is
// uppercase with single spaces between groups; surface forms drop the
// spaces, lowercase, or swap in dashes.
func (g *Generator) samplePlate() Sample {
	prefix := platePrefixes[g.rng.Intn(len(platePrefixes))]
	number := fmt.Sprintf("%d", g.rng.Intn(9999)+1)
	suffix := string(rune('A' + g.rng.Intn(26)))
	clean := prefix + " " + number + " " + suffix

	var text string
	switch g.rng.Intn(3) {
	case 0:
		text = prefix + number + suffix
	case 1:
		text = strings.ToLower(prefix + number + suffix)
	default:
		text = strings.ToLower(prefix + "-" + number + "-" + suffix)
	}

	return Sample{Text: text, Label: "plate", Clean: clean}
}

// sampleID generates an NRIC or FIN: S/T or F/G/M prefix, 7 digits, and a
// checksum letter. The clean form is uppercase without separators.
func (g *Generator) sampleID() Sample {
	prefixes := []string{"S", "T", "F", "G", "M"}
	prefix := prefixes[g.rng.Intn(len(prefixes))]
	digits := ""
	for i := 0; i < 7; i++ {
		digits += fmt.Sprintf("%d", g.rng.Intn(10))
	}
	suffix := string(rune('A' + g.rng.Intn(26)))
	clean := prefix + digits + suffix

	var text string
	switch g.rng.Intn(3) {
	case 0:
		text = clean
	case 1:
		text = strings.ToLower(clean)
	default:
		text = prefix + "-" + digits[:3] + "-" + digits[3:] + "-" + suffix
	}

	return Sample{Text: text, Label: "id", Clean: clean}
}

func (g *Generator) sampleRelationship() Sample {
	r := relationships[g.rng.Intn(len(relationships))]
	return Sample{
		Text:   casingVariant(g.rng, r.name),
		Label:  "relationship",
		Clean:  r.name,
		Gender: r.gender,
	}
}

func (g *Generator) sampleOrganisation() Sample {
	org := organisations[g.rng.Intn(len(organisations))]
	return Sample{
		Text:  casingVariant(g.rng, org),
		Label: "organisation",
		Clean: org,
	}
}

// samplePhone generates a Singapore mobile number. The clean form is the
// E.164 digits without the plus; the surface form varies grouping.
func (g *Generator) samplePhone() Sample {
	prefix := []string{"8", "9"}[g.rng.Intn(2)]
	digits := prefix
	for i := 0; i < 7; i++ {
		digits += fmt.Sprintf("%d", g.rng.Intn(10))
	}
	clean := "65" + digits

	var text string
	switch g.rng.Intn(3) {
	case 0:
		text = digits
	case 1:
		text = digits[:4] + " " + digits[4:]
	default:
		text = "+65-" + digits[:4] + "-" + digits[4:]
	}

	return Sample{Text: text, Label: "phone_number", Clean: clean}
}

// sampleEmail derives an address from a name and organisation when both
// are available, mirroring how real contact lists pair them.
func (g *Generator) sampleEmail(name, org *Sample) Sample {
	var local string
	switch {
	case name != nil:
		parts := strings.Fields(strings.ToLower(name.Clean))
		sep := []string{".", "_", ""}[g.rng.Intn(3)]
		if len(parts) > 2 {
			parts = parts[:2]
		}
		local = strings.Join(parts, sep)
	default:
		local = fmt.Sprintf("user%04d", g.rng.Intn(10000))
	}

	domain := emailDomains[g.rng.Intn(len(emailDomains))]
	if org != nil && g.rng.Intn(2) == 0 {
		domain = strings.ReplaceAll(strings.ToLower(org.Clean), " ", "") + ".com.sg"
	}

	addr := local + "@" + domain
	return Sample{Text: addr, Label: "email", Clean: addr}
}

func (g *Generator) sampleDate() Sample {
	day := g.rng.Intn(28) + 1
	month := months[g.rng.Intn(len(months))]
	year := 1990 + g.rng.Intn(36)
	clean := fmt.Sprintf("%d %s %d", day, month, year)

	var text string
	switch g.rng.Intn(3) {
	case 0:
		text = clean
	case 1:
		text = fmt.Sprintf("%02d/%02d/%d", day, g.rng.Intn(12)+1, year)
	default:
		text = casingVariant(g.rng, clean)
	}

	return Sample{Text: text, Label: "date", Clean: clean}
}

// sampleByType dispatches to the sampler for one entity type. Email and
// salutation derivation happens in the instance builder, which has the
// paired name and organisation in hand; random_entity splits evenly between
// plates and IDs.
func (g *Generator) sampleByType(entityType string) (Sample, error) {
	switch entityType {
	case "name":
		return g.sampleName(), nil
	case "relationship":
		return g.sampleRelationship(), nil
	case "organisation":
		return g.sampleOrganisation(), nil
	case "phone_number":
		return g.samplePhone(), nil
	case "date":
		return g.sampleDate(), nil
	case "country":
		return g.sampleCountry(), nil
	case "airport_code":
		return g.sampleAirportCode(), nil
	case "plate":
		return g.samplePlate(), nil
	case "id":
		return g.sampleID(), nil
	case "salutation":
		return g.sampleSalutation(""), nil
	case "random_entity":
		if g.rng.Intn(2) == 0 {
			return g.samplePlate(), nil
		}
		return g.sampleID(), nil
	default:
		return Sample{}, fmt.Errorf("no sampler for entity type %q", entityType)
	}
}
