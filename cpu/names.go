// Package cpu implements the bot's choices: move selection, grid-position
// selection for claims, and the name pool CPU seats and team display names
// are drawn from. Turn and claim pacing delays live in domino.Config.
package cpu

// Species is the shared name pool for CPU players and, separately, for
// team display names (finalize_match_teams draws from the same list,
// excluding whichever names are already in play as bot names).
var Species = []string{
	// Great Apes
	"Bonobo", "Orangutan",
	// Lesser Apes (Gibbons)
	"Siamang", "Lar Gibbon", "Agile Gibbon", "Hoolock",
	// Old World Monkeys
	"Mandrill", "Drill", "Gelada", "Baboon", "Macaque",
	"Rhesus", "Colobus", "Guereza", "Guenon", "Langur",
	"Douc", "Lutung", "Proboscis", "Mangabey", "Patas",
	"Talapoin", "Kipunji", "Vervet", "Grivet", "Mona",
	// New World Monkeys
	"Capuchin", "Squirrel", "Howler", "Spider", "Woolly",
	"Muriqui", "Douroucouli", "Marmoset", "Tamarin", "Saki",
	"Uakari", "Titi", "Pygmy", "Emperor", "Cotton-top",
	// More species
	"Snub-nosed", "Roloway", "DeBrazza", "Tonkin", "Sulawesi",
	"Celebes", "Toque", "Bonnet", "Pig-tailed", "Stump-tailed",
	"Tibetan", "Barbary", "Crab-eating", "Lion-tailed", "Nilgiri",
}

// AvatarPool is the fixed set of avatar ids a match draws its four seat
// avatars from (gaps at 12, 13, 19 are deliberate: excluded assets).
var AvatarPool = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 14, 15, 16, 17, 18, 20}

// PickName returns a random species name not already in use, falling back
// to the full pool if every name is taken (mirrors create_cpu_player).
func PickName(rng interface{ Intn(int) int }, existing []string) string {
	used := make(map[string]bool, len(existing))
	for _, n := range existing {
		used[n] = true
	}
	available := make([]string, 0, len(Species))
	for _, n := range Species {
		if !used[n] {
			available = append(available, n)
		}
	}
	if len(available) == 0 {
		available = Species
	}
	return available[rng.Intn(len(available))]
}
