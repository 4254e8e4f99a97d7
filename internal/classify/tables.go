package classify

import "github.com/MrWong99/vocifer/pkg/types"

// genderKeyword maps an honorific or role substring to a gender. Keywords are
// checked before suffix heuristics and win outright on first match.
type genderKeyword struct {
	keyword string
	gender  types.Gender
}

// defaultGenderKeywords is the built-in honorific/keyword table. Ordered;
// the first matching entry wins.
var defaultGenderKeywords = []genderKeyword{
	{"king", types.GenderMale},
	{"lord", types.GenderMale},
	{"duke", types.GenderMale},
	{"prince", types.GenderMale},
	{"baron", types.GenderMale},
	{"sir ", types.GenderMale},
	{"brother", types.GenderMale},
	{"father", types.GenderMale},
	{"monk", types.GenderMale},
	{"wizard", types.GenderMale},
	{"queen", types.GenderFemale},
	{"lady", types.GenderFemale},
	{"duchess", types.GenderFemale},
	{"princess", types.GenderFemale},
	{"baroness", types.GenderFemale},
	{"dame", types.GenderFemale},
	{"sister", types.GenderFemale},
	{"mother", types.GenderFemale},
	{"witch", types.GenderFemale},
	{"priestess", types.GenderFemale},
	{"matron", types.GenderFemale},
	{"maid", types.GenderFemale},
}

// suffixRule maps a name suffix to a gender. Checked in order against the
// first word of the normalized name, after keyword rules have failed.
type suffixRule struct {
	suffix string
	gender types.Gender
}

// defaultSuffixRules is the built-in name-suffix heuristic table. Longer
// suffixes come first so they are not shadowed by shorter ones.
var defaultSuffixRules = []suffixRule{
	{"ia", types.GenderFemale},
	{"ette", types.GenderFemale},
	{"elle", types.GenderFemale},
	{"ina", types.GenderFemale},
	{"wyn", types.GenderFemale},
	{"a", types.GenderFemale},
	{"us", types.GenderMale},
	{"os", types.GenderMale},
	{"ius", types.GenderMale},
	{"or", types.GenderMale},
	{"gar", types.GenderMale},
	{"rik", types.GenderMale},
	{"o", types.GenderMale},
}

// tagRule maps a substring of the normalized display name to a tag. Unlike
// gender rules, every matching tag rule fires; the table is deliberately
// flat so new rows can be appended without shadowing earlier ones.
type tagRule struct {
	keyword string
	tag     string
}

// defaultTagRules is the built-in substring → tag table covering creature
// types, social roles, and common fantasy regions/factions.
var defaultTagRules = []tagRule{
	// Creature types.
	{"goblin", "goblin"},
	{"hobgoblin", "goblin"},
	{"dwarf", "dwarf"},
	{"dwarven", "dwarf"},
	{"elf", "elf"},
	{"elven", "elf"},
	{"gnome", "gnome"},
	{"orc", "orc"},
	{"troll", "troll"},
	{"ogre", "ogre"},
	{"giant", "giant"},
	{"imp", "imp"},
	{"demon", "demon"},
	{"ghost", "undead"},
	{"skeleton", "undead"},
	{"zombie", "undead"},
	{"spirit", "undead"},
	{"vampyre", "undead"},
	{"vampire", "undead"},
	{"fairy", "fairy"},
	{"pirate", "pirate"},

	// Social roles.
	{"guard", "guard"},
	{"soldier", "guard"},
	{"warrior", "guard"},
	{"knight", "knight"},
	{"wizard", "wizard"},
	{"mage", "wizard"},
	{"sorcer", "wizard"},
	{"druid", "druid"},
	{"monk", "monk"},
	{"priest", "priest"},
	{"king", "royalty"},
	{"queen", "royalty"},
	{"prince", "royalty"},
	{"duke", "royalty"},
	{"lord", "noble"},
	{"lady", "noble"},
	{"shopkeeper", "merchant"},
	{"merchant", "merchant"},
	{"trader", "merchant"},
	{"banker", "merchant"},
	{"bartender", "merchant"},
	{"farmer", "commoner"},
	{"fisherman", "commoner"},
	{"miner", "commoner"},
	{"sailor", "sailor"},
	{"child", "kid"},
	{"boy", "kid"},
	{"girl", "kid"},

	// Regions and factions.
	{"desert", "desert"},
	{"nomad", "desert"},
	{"tribes", "tribal"},
	{"tribal", "tribal"},
	{"northern", "north"},
	{"mountain", "north"},
	{"swamp", "swamp"},
	{"jungle", "jungle"},
	{"bandit", "bandit"},
	{"thief", "bandit"},
	{"rogue", "bandit"},
	{"cultist", "cult"},
	{"narrator", "narrator"},
}
