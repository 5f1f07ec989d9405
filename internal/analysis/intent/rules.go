package intent

import (
	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/analysis/lexicon"
)

// Rule binds a keyword set to a category. Reply names the reply template; it
// defaults to the category itself. Path overrides the category's navigation target.
type Rule struct {
	Category Category
	Keywords []string
	Reply    string
	Path     string
}

// Table is the ordered rule set of one language.
type Table struct {
	Primary  []Rule
	Extended []Rule
}

// Primary tables list categories in declaration order. A category may own more
// than one adjacent rule when it has several reply templates (help vs greeting).
var tables = map[language.Tag]Table{
	language.English: {
		Primary: []Rule{
			{Category: Home, Keywords: []string{"home page", "homepage", " home ", "main page", "start page", "front page"}},
			{Category: Booking, Keywords: []string{" book", "booking", "appointment", "schedule", "reserve", "reservation"}},
			{Category: Services, Keywords: []string{"service", "detailing", "car wash", " wash", "what do you offer", "packages"}},
			{Category: Pricing, Keywords: []string{"price", "pricing", " cost", "how much", "quote", "expensive", "cheap"}},
			{Category: Help, Keywords: []string{" help", "assist", "what can you do", "how does this work", "guide me"}},
			{Category: Thanks, Keywords: []string{"thank", "appreciate", "cheers"}},
			{Category: Track, Keywords: []string{"track", "status", "where is my", "progress", "my order"}},
			{Category: Problem, Keywords: []string{"problem", "issue", "broken", "not working", "damage", "wrong"}},
			{Category: Feedback, Keywords: []string{"feedback", "review", "suggestion", "rate my", "opinion"}},
			{Category: Support, Keywords: []string{"support", "ticket", "agent", " human", "complain", "representative", "talk to someone"}},
		},
		Extended: []Rule{
			// navigation targets
			{Category: Services, Keywords: []string{"gallery", "photos", "before and after", "our work"}, Reply: "gallery", Path: "/gallery"},
			{Category: Pricing, Keywords: []string{"loyalty", " points", "rewards", "membership"}, Reply: "loyalty", Path: "/loyalty"},
			{Category: Track, Keywords: []string{"dashboard", "my account", "profile", "history"}, Reply: "dashboard", Path: "/dashboard"},
			// service topics
			{Category: Services, Keywords: []string{"ceramic", "coating"}, Reply: "service_ceramic", Path: "/services#ceramic-coating"},
			{Category: Services, Keywords: []string{"interior", "upholstery", "vacuum", "seats", "carpet"}, Reply: "service_interior", Path: "/services#interior-detail"},
			{Category: Services, Keywords: []string{" wax", "polish", "paint correction", "shine"}, Reply: "service_polish", Path: "/services#paint-correction"},
			{Category: Services, Keywords: []string{"mobile", "come to me", "come to my", "my driveway"}, Reply: "service_mobile"},
			{Category: Help, Keywords: []string{"opening hours", " hours", "open today", "when are you open", "closing time"}, Reply: "hours"},
			{Category: Help, Keywords: []string{"location", "address", "where are you", "directions"}, Reply: "location"},
			{Category: Help, Keywords: []string{"how long", "duration", "take to"}, Reply: "duration"},
			{Category: Help, Keywords: []string{"payment", " pay ", "credit card", " cash "}, Reply: "payment"},
			// support and feedback intents
			{Category: Support, Keywords: []string{"contact", "phone", "email", "call you", "call me"}, Reply: "contact"},
			{Category: Feedback, Keywords: []string{"experience", "rating", " stars", "testimonial"}, Reply: "feedback_prompt"},
			// small talk
			{Category: Help, Keywords: []string{"hello", " hi ", " hey ", "good morning", "good afternoon", "good evening", "greetings", "howdy"}, Reply: "greeting"},
			{Category: Thanks, Keywords: []string{" bye", "goodbye", "see you", "that s all"}, Reply: "goodbye"},
		},
	},
	language.Spanish: {
		Primary: []Rule{
			{Category: Home, Keywords: []string{"inicio", "página principal", "pagina principal"}},
			{Category: Booking, Keywords: []string{"reservar", "reserva", " cita", "agendar"}},
			{Category: Services, Keywords: []string{"servicio", "lavado", "detallado"}},
			{Category: Pricing, Keywords: []string{"precio", "cuánto", "cuanto", "costo", "tarifa"}},
			{Category: Help, Keywords: []string{"ayuda", "ayúdame", "qué puedes hacer", "que puedes hacer"}},
			{Category: Help, Keywords: []string{"hola", "buenos días", "buenos dias", "buenas tardes", "buenas noches", "saludos"}, Reply: "greeting"},
			{Category: Thanks, Keywords: []string{"gracias"}},
			{Category: Track, Keywords: []string{"estado", "seguimiento", "rastrear", "dónde está"}},
			{Category: Problem, Keywords: []string{"problema", "daño", "no funciona"}},
			{Category: Feedback, Keywords: []string{"opinión", "comentario", "reseña", "sugerencia"}},
			{Category: Support, Keywords: []string{"soporte", "ticket", "queja", "agente"}},
		},
	},
	language.French: {
		Primary: []Rule{
			{Category: Home, Keywords: []string{"accueil", "page principale"}},
			{Category: Booking, Keywords: []string{"réserver", "réservation", "rendez vous"}},
			{Category: Services, Keywords: []string{"service", "lavage", "nettoyage", "prestations"}},
			{Category: Pricing, Keywords: []string{"prix", "combien", "tarif", "coût"}},
			{Category: Help, Keywords: []string{" aide", "aidez", "que pouvez vous faire"}},
			{Category: Help, Keywords: []string{"bonjour", "bonsoir", "salut", "coucou"}, Reply: "greeting"},
			{Category: Thanks, Keywords: []string{"merci"}},
			{Category: Track, Keywords: []string{"suivi", "statut", "où en est"}},
			{Category: Problem, Keywords: []string{"problème", "dommage", "ne marche pas"}},
			{Category: Feedback, Keywords: []string{" avis", "commentaire", "suggestion"}},
			{Category: Support, Keywords: []string{"support", "assistance", "ticket", "réclamation"}},
		},
	},
	language.Arabic: {
		Primary: []Rule{
			{Category: Home, Keywords: []string{"الرئيسية"}},
			{Category: Booking, Keywords: []string{"حجز", "احجز", "موعد"}},
			{Category: Services, Keywords: []string{"خدمات", "خدمة", "غسيل", "تلميع"}},
			{Category: Pricing, Keywords: []string{"سعر", "أسعار", " كم ", "تكلفة"}},
			{Category: Help, Keywords: []string{"مساعدة", "ساعدني"}},
			{Category: Help, Keywords: []string{"مرحبا", "السلام عليكم", "أهلا", "اهلا"}, Reply: "greeting"},
			{Category: Thanks, Keywords: []string{"شكرا"}},
			{Category: Track, Keywords: []string{"تتبع", "حالة"}},
			{Category: Problem, Keywords: []string{"مشكلة", "عطل"}},
			{Category: Feedback, Keywords: []string{"رأي", "تقييم", "ملاحظات"}},
			{Category: Support, Keywords: []string{"دعم", "تذكرة", "شكوى"}},
		},
	},
}

type compiledRule struct {
	Rule
	keywords []lexicon.Keyword
}

type compiledTable struct {
	primary  []compiledRule
	extended []compiledRule
}

var compiled = func() map[language.Tag]compiledTable {
	out := make(map[language.Tag]compiledTable, len(tables))
	for tag, table := range tables {
		out[tag] = compiledTable{
			primary:  compileRules(table.Primary),
			extended: compileRules(table.Extended),
		}
	}
	return out
}()

func compileRules(rules []Rule) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Reply == "" {
			r.Reply = string(r.Category)
		}
		out = append(out, compiledRule{Rule: r, keywords: lexicon.CompileAll(r.Keywords)})
	}
	return out
}

// TableFor returns a copy of the rule table used for tag.
func TableFor(tag language.Tag) (Table, bool) {
	table, ok := tables[tag]
	if !ok {
		return Table{}, false
	}
	return Table{
		Primary:  append([]Rule(nil), table.Primary...),
		Extended: append([]Rule(nil), table.Extended...),
	}, true
}
