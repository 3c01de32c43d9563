package passgen

// wordlist holds the candidate words for generated passphrases: common
// English words of 4-8 letters in the diceware tradition. With 1239
// entries each word contributes ~10.3 bits of entropy.
var wordlist = []string{
	"about", "above", "acid", "actor", "adopt", "adult", "after", "again",
	"agent", "agree", "ahead", "alarm", "album", "alert", "alien", "alive",
	"alley", "allow", "alone", "alpha", "alter", "amino", "among", "ample",
	"angel", "anger", "angle", "angry", "ankle", "apart", "apple", "apply",
	"arena", "argue", "armor", "arrow", "aside", "asset", "atlas", "audio",
	"audit", "avoid", "award", "bacon", "badge", "badly", "baker", "bases",
	"basic", "basin", "basis", "batch", "beach", "beard", "beast", "began",
	"begin", "begun", "being", "belly", "below", "bench", "berry", "bible",
	"bikes", "birds", "birth", "black", "blade", "blame", "blank", "blast",
	"blaze", "bleed", "blend", "bless", "blind", "blink", "block", "blood",
	"bloom", "blown", "blues", "blunt", "board", "boast", "boats", "bonus",
	"boost", "booth", "boots", "bored", "bound", "boxer", "brain", "brand",
	"brass", "brave", "bread", "break", "breed", "brick", "bride", "brief",
	"bring", "brisk", "broad", "broke", "brook", "brown", "brush", "build",
	"built", "bunch", "burst", "cabin", "cable", "camel", "canal", "candy",
	"canoe", "cards", "cargo", "carry", "carve", "catch", "cause", "cease",
	"cedar", "chain", "chair", "chalk", "champ", "chaos", "charm", "chart",
	"chase", "cheap", "check", "cheek", "chess", "chest", "chief", "child",
	"chill", "china", "chips", "chord", "chose", "chunk", "civic", "civil",
	"claim", "clash", "class", "clean", "clear", "clerk", "click", "cliff",
	"climb", "cling", "cloak", "clock", "clone", "close", "cloth", "cloud",
	"clown", "clubs", "coach", "coast", "codes", "comet", "comic", "coral",
	"could", "count", "coupe", "court", "cover", "crack", "craft", "crane",
	"crash", "crawl", "crazy", "cream", "creek", "creep", "crest", "crime",
	"crisp", "cross", "crowd", "crown", "crude", "cruel", "crush", "cubic",
	"curve", "cycle", "daily", "dairy", "dance", "darts", "dealt", "death",
	"debut", "decal", "decay", "decor", "decoy", "delta", "demon", "denim",
	"dense", "depot", "depth", "derby", "desks", "devil", "diary", "digit",
	"diner", "dirty", "disco", "ditch", "diver", "dodge", "doing", "donor",
	"doubt", "dough", "downs", "dozen", "draft", "drain", "drake", "drama",
	"drank", "drape", "drawl", "drawn", "dream", "dress", "dried", "drift",
	"drill", "drink", "drive", "droit", "drown", "drugs", "drums", "drunk",
	"dusty", "dwarf", "eager", "eagle", "early", "earth", "easel", "eaten",
	"eaves", "ebony", "edges", "eight", "elbow", "elder", "elect", "elite",
	"empty", "ended", "enemy", "enjoy", "enter", "entry", "equal", "equip",
	"error", "erupt", "essay", "evade", "event", "every", "exact", "exams",
	"excel", "exile", "exist", "extra", "fable", "facts", "faint", "fairy",
	"faith", "false", "fancy", "fatal", "fault", "favor", "feast", "fence",
	"ferry", "fetch", "fever", "fiber", "field", "fifth", "fifty", "fight",
	"films", "final", "finds", "fired", "firms", "first", "fixed", "flags",
	"flame", "flank", "flash", "flask", "flock", "flood", "floor", "flora",
	"flour", "fluid", "flush", "flute", "focal", "focus", "foggy", "folks",
	"force", "forge", "forms", "forth", "forum", "fossil", "found", "frame",
	"frank", "fraud", "fresh", "fried", "front", "frost", "fruit", "fully",
	"funds", "funny", "fused", "gains", "gamma", "gauge", "gears", "geese",
	"genre", "ghost", "giant", "gifts", "girls", "given", "gives", "gland",
	"glass", "gleam", "glide", "globe", "glory", "gloss", "glove", "glyph",
	"goals", "goats", "going", "goods", "goose", "grace", "grade", "grain",
	"grand", "grant", "grape", "graph", "grasp", "grass", "grave", "greed",
	"greek", "green", "greet", "grief", "grill", "grind", "grips", "gross",
	"group", "grove", "grown", "guard", "guess", "guest", "guide", "guild",
	"guilt", "habit", "hairs", "hands", "handy", "happy", "hardy", "harms",
	"harsh", "haste", "hasty", "hatch", "haven", "havoc", "hazel", "heads",
	"heals", "heard", "heart", "heavy", "hedge", "heels", "heist", "hello",
	"helps", "herbs", "hints", "hobby", "holds", "holes", "homer", "honey",
	"honor", "hooks", "hopes", "horse", "hosts", "hotel", "hound", "hours",
	"house", "hover", "human", "humid", "humor", "hurry", "icons", "ideal",
	"ideas", "image", "index", "indie", "inner", "input", "intel", "inter",
	"intro", "ionic", "irish", "irony", "issue", "items", "ivory", "jeans",
	"jewel", "joins", "joint", "joker", "jolly", "jones", "judge", "juice",
	"jumbo", "jumps", "kicks", "kinds", "kings", "kites", "knack", "knees",
	"knife", "knock", "knots", "known", "label", "labor", "laced", "lakes",
	"lance", "lands", "lanes", "large", "laser", "lasts", "later", "latex",
	"latin", "laugh", "layer", "leads", "leaks", "leapt", "learn", "lease",
	"least", "leave", "ledge", "legal", "lemon", "level", "lever", "light",
	"liked", "limbs", "limit", "lined", "linen", "liner", "lines", "links",
	"lions", "lists", "lived", "liver", "lives", "loads", "loans", "lobby",
	"local", "locks", "lodge", "lofty", "logic", "logos", "looks", "loops",
	"loose", "lords", "lorry", "loser", "lotus", "loved", "lover", "lower",
	"loyal", "lucky", "lunar", "lunch", "lungs", "lying", "lyric", "macro",
	"magic", "major", "maker", "males", "manor", "maple", "march", "marks",
	"marsh", "masks", "match", "maybe", "mayor", "meals", "means", "media",
	"meets", "melon", "mercy", "merge", "merit", "merry", "messy", "metal",
	"meter", "micro", "might", "miles", "mills", "miner", "minor", "mints",
	"minus", "mixed", "model", "modem", "modes", "moist", "moldy", "money",
	"monks", "month", "moods", "moons", "moral", "motor", "motto", "mount",
	"mouse", "mouth", "moved", "mover", "moves", "movie", "much", "muddy",
	"multi", "mural", "music", "myths", "naive", "named", "names", "nanny",
	"nasty", "naval", "needs", "nerve", "never", "newly", "nexus", "night",
	"ninja", "ninth", "noble", "nodes", "noise", "north", "notch", "noted",
	"notes", "novel", "nurse", "occur", "ocean", "olive", "omega", "onion",
	"opens", "opera", "optic", "orbit", "order", "organ", "other", "ought",
	"outer", "owned", "owner", "oxide", "ozone", "paced", "packs", "pages",
	"pains", "paint", "pairs", "palms", "panel", "panic", "pants", "papal",
	"paper", "parks", "parts", "party", "pasta", "paste", "patch", "paths",
	"patio", "pause", "peace", "peaks", "pearl", "pedal", "penny", "perks",
	"pesos", "petty", "phase", "phone", "photo", "piano", "picks", "piece",
	"piety", "pilot", "pinch", "pines", "pipes", "pitch", "pixel", "pizza",
	"place", "plain", "plane", "plans", "plant", "plate", "plays", "plaza",
	"plead", "plots", "pluck", "plugs", "plumb", "plume", "plump", "plums",
	"plus", "poems", "poets", "point", "poker", "polar", "poles", "polls",
	"ponds", "pools", "porch", "ports", "posed", "poses", "posts", "pouch",
	"pound", "power", "press", "preys", "price", "pride", "prime", "print",
	"prior", "prism", "prize", "probe", "prone", "proof", "props", "prose",
	"proud", "prove", "proxy", "psalm", "pulse", "pumps", "punch", "pupil",
	"puppy", "purse", "queen", "query", "quest", "queue", "quick", "quiet",
	"quilt", "quota", "quote", "radar", "radio", "rails", "rains", "raise",
	"rally", "ranch", "range", "ranks", "rapid", "ratio", "raven", "razor",
	"reach", "reads", "ready", "realm", "rebel", "refer", "reign", "relax",
	"relay", "relic", "remix", "renal", "renew", "repay", "reply", "reset",
	"resin", "retro", "rider", "ridge", "rifle", "right", "rigid", "rings",
	"riots", "risky", "ritzy", "rival", "river", "roads", "roast", "robot",
	"rocks", "rocky", "roger", "roles", "rolls", "roman", "roofs", "rooms",
	"roots", "roses", "rouge", "rough", "round", "route", "royal", "rugby",
	"ruins", "ruled", "ruler", "rules", "rumor", "rural", "rusty", "sadly",
	"safer", "saint", "salad", "sales", "salon", "salsa", "salty", "sands",
	"sandy", "satin", "sauce", "saved", "saves", "scale", "scarf", "scary",
	"scene", "scent", "scope", "score", "scout", "scrap", "seals", "seats",
	"seeds", "seeks", "seems", "seize", "sense", "serve", "setup", "seven",
	"shade", "shaft", "shake", "shall", "shame", "shape", "share", "shark",
	"sharp", "shave", "sheep", "sheer", "sheet", "shelf", "shell", "shift",
	"shine", "shiny", "ships", "shirt", "shock", "shoes", "shoot", "shops",
	"shore", "short", "shots", "shout", "shown", "shows", "sides", "siege",
	"sight", "sigma", "signs", "silly", "since", "sites", "sixth", "sixty",
	"sized", "sizes", "skill", "skins", "skirt", "skull", "slate", "slave",
	"sleek", "sleep", "slice", "slide", "slope", "slump", "small", "smart",
	"smell", "smile", "smoke", "snake", "snaps", "sneak", "snowy", "sober",
	"socks", "solar", "solid", "solve", "songs", "sonic", "sorry", "sorts",
	"souls", "sound", "south", "space", "spare", "spark", "spawn", "speak",
	"spear", "specs", "speed", "spell", "spend", "spent", "spice", "spicy",
	"spike", "spine", "split", "spoke", "spoon", "sport", "spots", "spray",
	"squad", "stack", "staff", "stage", "stain", "stair", "stake", "stamp",
	"stand", "stark", "stars", "start", "state", "stays", "steak", "steal",
	"steam", "steel", "steep", "steer", "stems", "steps", "stick", "stiff",
	"still", "stock", "stomp", "stone", "stood", "stool", "store", "storm",
	"story", "stout", "stove", "strap", "straw", "strip", "stuck", "study",
	"stuff", "style", "sugar", "suite", "sunny", "super", "surge", "swamp",
	"swans", "swear", "sweat", "sweep", "sweet", "swept", "swift", "swing",
	"swiss", "sword", "syrup", "table", "taken", "tales", "talks", "tanks",
	"tapes", "tasks", "taste", "tasty", "taxes", "teach", "teams", "tears",
	"teens", "teeth", "tempo", "tends", "tenor", "tense", "tenth", "terms",
	"tests", "texas", "texts", "thank", "theft", "theme", "thick", "thief",
	"thing", "think", "third", "those", "three", "threw", "throw", "thumb",
	"tiger", "tight", "tiles", "timer", "times", "tints", "tired", "titan",
	"title", "toast", "today", "token", "tombs", "toned", "tones", "tools",
	"tooth", "topic", "torch", "total", "touch", "tough", "tours", "tower",
	"towns", "toxic", "trace", "track", "tract", "trade", "trail", "train",
	"trait", "trash", "treat", "trees", "trend", "trial", "tribe", "trick",
	"tried", "tries", "trims", "trips", "troop", "truck", "truly", "trump",
	"trunk", "trust", "truth", "tulip", "tumor", "tunes", "turbo", "turns",
	"tutor", "tweed", "twice", "twins", "twist", "typed", "types", "uncle",
	"under", "unify", "union", "unite", "units", "unity", "until", "upper",
	"urban", "urged", "usage", "users", "using", "usual", "valid", "value",
	"valve", "vault", "vegas", "venom", "venue", "venus", "verbs", "verse",
	"video", "views", "vinyl", "viola", "viral", "virus", "visit", "vista",
	"vital", "vivid", "vocal", "vodka", "voice", "volts", "voted", "voter",
	"votes", "wages", "wagon", "waist", "walks", "walls", "waltz", "wants",
	"waste", "watch", "water", "watts", "waves", "wears", "weary", "weeds",
	"weeks", "weird", "wells", "welsh", "whale", "wheat", "wheel", "where",
	"which", "while", "white", "whole", "whose", "widen", "wider", "width",
	"winds", "wines", "wings", "wiped", "wires", "witch", "wives", "woman",
	"women", "woods", "words", "works", "world", "worms", "worry", "worse",
	"worst", "worth", "would", "wound", "woven", "wrath", "wreck", "wrist",
	"write", "wrong", "wrote", "yacht", "yards", "years", "yeast", "yield",
	"young", "yours", "youth", "zebra", "zeros", "zesty", "zones",
}
