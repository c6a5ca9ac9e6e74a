package query

import "time"

// stopWords are dropped during tokenization: articles, prepositions,
// auxiliary verbs, pronouns, the photo-domain filler nouns, and the verbs
// people use to phrase a search.
var stopWords = map[string]bool{
	// Articles and conjunctions.
	"a": true, "an": true, "the": true, "and": true, "or": true,

	// Prepositions.
	"at": true, "by": true, "for": true, "from": true, "in": true,
	"into": true, "of": true, "on": true, "to": true, "with": true,
	"about": true, "near": true, "during": true,

	// Auxiliary verbs.
	"am": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "do": true, "does": true,
	"did": true, "have": true, "has": true, "had": true, "can": true,
	"could": true, "will": true, "would": true, "should": true,

	// Pronouns and demonstratives.
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "it": true, "its": true, "that": true,
	"this": true, "these": true, "those": true, "some": true, "any": true,

	// Domain filler nouns.
	"photo": true, "photos": true, "picture": true, "pictures": true,
	"image": true, "images": true, "pic": true, "pics": true,

	// Query verbs.
	"find": true, "show": true, "get": true, "search": true,
}

// sceneTerms is the canonical scene vocabulary.
var sceneTerms = map[string]bool{
	"beach": true, "sunset": true, "sunrise": true, "mountain": true,
	"forest": true, "city": true, "park": true, "lake": true,
	"river": true, "snow": true, "night": true, "garden": true,
	"street": true, "desert": true, "waterfall": true, "field": true,
	"sky": true, "indoor": true, "outdoor": true, "wedding": true,
	"party": true, "concert": true, "office": true, "restaurant": true,
	"home": true,
}

// objectTerms is the canonical object vocabulary.
var objectTerms = map[string]bool{
	"dog": true, "cat": true, "bird": true, "fish": true, "horse": true,
	"car": true, "bicycle": true, "boat": true, "plane": true,
	"train": true, "flower": true, "tree": true, "food": true,
	"cake": true, "coffee": true, "book": true, "guitar": true,
	"phone": true, "camera": true, "building": true, "bridge": true,
	"baby": true, "child": true, "person": true, "people": true,
	"family": true,
}

// emotionTerms is the canonical emotion vocabulary.
var emotionTerms = map[string]bool{
	"happy": true, "sad": true, "excited": true, "calm": true,
	"peaceful": true, "romantic": true, "fun": true, "angry": true,
	"surprised": true, "cozy": true, "nostalgic": true, "love": true,
}

// synonyms folds variants onto canonical vocabulary terms before category
// lookup. Many-to-one; plural forms are handled here as well since lookup
// is exact-match, not stemmed.
var synonyms = map[string]string{
	// Scenes.
	"seaside": "beach", "shore": "beach", "coast": "beach", "beaches": "beach",
	"sundown": "sunset", "dusk": "sunset", "sunsets": "sunset",
	"dawn": "sunrise", "daybreak": "sunrise",
	"mountains": "mountain", "hill": "mountain", "hills": "mountain", "peak": "mountain",
	"woods": "forest", "woodland": "forest", "forests": "forest",
	"town": "city", "downtown": "city", "urban": "city", "cities": "city",
	"parks": "park", "playground": "park",
	"lakes": "lake", "pond": "lake",
	"rivers": "river", "stream": "river",
	"snowy": "snow", "winter": "snow",
	"nighttime": "night", "evening": "night",
	"gardens": "garden", "backyard": "garden",
	"streets": "street", "road": "street",
	"fields": "field", "meadow": "field",
	"marriage": "wedding", "bride": "wedding",
	"celebration": "party", "birthday": "party",
	"restaurants": "restaurant", "cafe": "restaurant", "diner": "restaurant",
	"house": "home", "apartment": "home",

	// Objects.
	"dogs": "dog", "puppy": "dog", "pup": "dog", "doggy": "dog",
	"cats": "cat", "kitten": "cat", "kitty": "cat",
	"birds": "bird",
	"horses": "horse", "pony": "horse",
	"cars": "car", "automobile": "car", "vehicle": "car",
	"bike": "bicycle", "bikes": "bicycle", "bicycles": "bicycle",
	"boats": "boat", "ship": "boat", "sailboat": "boat",
	"planes": "plane", "airplane": "plane", "aircraft": "plane",
	"trains": "train", "railway": "train",
	"flowers": "flower", "blossom": "flower", "bloom": "flower",
	"trees": "tree",
	"meal": "food", "dish": "food", "dinner": "food", "lunch": "food",
	"breakfast": "food",
	"cakes": "cake", "dessert": "cake",
	"books": "book",
	"phones": "phone", "smartphone": "phone",
	"buildings": "building", "skyscraper": "building",
	"babies": "baby", "infant": "baby", "newborn": "baby",
	"kid": "child", "kids": "child", "children": "child",
	"persons": "person",

	// Emotions.
	"joyful": "happy", "cheerful": "happy", "smiling": "happy", "joy": "happy",
	"unhappy": "sad", "gloomy": "sad",
	"thrilled": "excited", "exciting": "excited",
	"quiet": "calm", "serene": "calm", "tranquil": "calm",
	"relaxing": "peaceful",
	"funny": "fun", "playful": "fun",
	"loving": "love", "affection": "love",
}

// monthNames resolves full month names and their three-letter forms.
var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}
