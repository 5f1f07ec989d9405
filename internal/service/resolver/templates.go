package resolver

import (
	"strings"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
)

// Reply template keys that are not category names.
const (
	keyDefault      = "default"
	keyWelcome      = "welcome"
	keyRecommend    = "recommendation"
	keyAlternatives = "recommendation_alternatives"
)

// Templates are keyed by language then by reply key. A language only needs the
// keys it wants to localize; anything missing falls back to that language's
// default reply.
var templates = map[language.Tag]map[string]string{
	language.English: {
		keyDefault:         "I'm not sure I understood that. You can ask me about our services, prices, booking an appointment or tracking your vehicle.",
		keyWelcome:         "Hi! I'm your detailing concierge. Ask me about services, prices or bookings, or describe what your car needs.",
		"home":             "Taking you back to the home page.",
		"booking":          "Let's get you booked in. Opening the booking page now.",
		"services":         "Here are the services we offer. Opening the services page.",
		"pricing":          "Here's our pricing. Opening the pricing page.",
		"help":             "I can help you book an appointment, explore services and prices, track your vehicle or reach our support team.",
		"thanks":           "You're welcome! Anything else I can help with?",
		"track":            "Let's check on your vehicle. Opening the tracking page.",
		"problem":          "Sorry to hear that. Tell me a little more about the problem, or I can open a support ticket for you.",
		"feedback":         "We'd love your feedback. I've opened the feedback form.",
		"support":          "I've opened the support form. Describe the issue and our team will get back to you.",
		"greeting":         "Hello! How can I help with your car today?",
		"goodbye":          "Goodbye! Drive safe.",
		"gallery":          "Here's some of our recent work. Opening the gallery.",
		"loyalty":          "Opening your loyalty rewards.",
		"dashboard":        "Opening your dashboard.",
		"hours":            "We're open Monday to Saturday, 8am to 6pm.",
		"location":         "You'll find our studio address and directions on the contact page, and we also offer mobile detailing.",
		"duration":         "Most services take between one and five hours. A full ceramic coating can take a whole day.",
		"payment":          "We accept all major credit cards and cash. Payment is taken when the work is done.",
		"contact":          "I've opened the support form so our team can contact you.",
		"feedback_prompt":  "Thanks for sharing. I've opened the feedback form so you can rate your experience.",
		"service_ceramic":  "Ceramic coating adds a hard protective layer that keeps the gloss for years. Opening the details.",
		"service_interior": "Our interior detail deep cleans seats, carpets and every surface. Opening the details.",
		"service_polish":   "Polishing and paint correction remove swirls and restore the shine. Opening the details.",
		"service_mobile":   "Yes, we can come to you. Mobile detailing is available for most services.",
		keyRecommend:       "It sounds like {service} would help: {summary}.",
		keyAlternatives:    " You might also consider {alternatives}.",
	},
	language.Spanish: {
		keyDefault:      "No estoy seguro de haberte entendido. Puedes preguntarme por servicios, precios, reservas o el estado de tu vehículo.",
		keyWelcome:      "¡Hola! Soy tu asistente de detallado. Pregúntame por servicios, precios o reservas.",
		"home":          "Volviendo a la página de inicio.",
		"booking":       "Vamos a reservar tu cita. Abriendo la página de reservas.",
		"services":      "Estos son nuestros servicios. Abriendo la página de servicios.",
		"pricing":       "Estos son nuestros precios. Abriendo la página de precios.",
		"help":          "Puedo ayudarte a reservar una cita, ver servicios y precios, seguir tu vehículo o contactar con soporte.",
		"thanks":        "¡De nada! ¿Te ayudo con algo más?",
		"track":         "Vamos a ver cómo va tu vehículo. Abriendo el seguimiento.",
		"problem":       "Lamento oír eso. Cuéntame más o abro un ticket de soporte.",
		"feedback":      "Nos encantaría conocer tu opinión. He abierto el formulario.",
		"support":       "He abierto el formulario de soporte. Describe el problema y te responderemos.",
		"greeting":      "¡Hola! ¿En qué puedo ayudarte hoy con tu coche?",
		keyRecommend:    "Parece que {service} te ayudaría: {summary}.",
		keyAlternatives: " También podrías considerar {alternatives}.",
	},
	language.French: {
		keyDefault:      "Je ne suis pas sûr d'avoir compris. Vous pouvez me demander nos services, nos prix, une réservation ou le suivi de votre véhicule.",
		keyWelcome:      "Bonjour ! Je suis votre assistant detailing. Demandez-moi nos services, nos prix ou une réservation.",
		"home":          "Retour à la page d'accueil.",
		"booking":       "Réservons votre rendez-vous. J'ouvre la page de réservation.",
		"services":      "Voici nos prestations. J'ouvre la page des services.",
		"pricing":       "Voici nos tarifs. J'ouvre la page des prix.",
		"help":          "Je peux vous aider à réserver, découvrir nos services et tarifs, suivre votre véhicule ou joindre le support.",
		"thanks":        "Avec plaisir ! Puis-je vous aider pour autre chose ?",
		"track":         "Voyons où en est votre véhicule. J'ouvre le suivi.",
		"problem":       "Désolé d'apprendre cela. Décrivez le problème ou j'ouvre un ticket de support.",
		"feedback":      "Votre avis compte. J'ai ouvert le formulaire.",
		"support":       "J'ai ouvert le formulaire de support. Décrivez le problème et notre équipe vous répondra.",
		"greeting":      "Bonjour ! Comment puis-je vous aider avec votre voiture ?",
		keyRecommend:    "Il semble que {service} soit adapté : {summary}.",
		keyAlternatives: " Vous pourriez aussi envisager {alternatives}.",
	},
	// Arabic has no dedicated problem reply; it falls back to its own default.
	language.Arabic: {
		keyDefault:      "لم أفهم طلبك تماماً. يمكنك سؤالي عن الخدمات أو الأسعار أو الحجز أو متابعة سيارتك.",
		keyWelcome:      "مرحباً! أنا مساعدك للعناية بالسيارات. اسألني عن الخدمات أو الأسعار أو الحجز.",
		"home":          "العودة إلى الصفحة الرئيسية.",
		"booking":       "لنحجز موعدك. جارٍ فتح صفحة الحجز.",
		"services":      "هذه خدماتنا. جارٍ فتح صفحة الخدمات.",
		"pricing":       "هذه أسعارنا. جارٍ فتح صفحة الأسعار.",
		"help":          "يمكنني مساعدتك في الحجز ومعرفة الخدمات والأسعار ومتابعة سيارتك أو التواصل مع الدعم.",
		"thanks":        "على الرحب والسعة! هل من شيء آخر؟",
		"track":         "لنتحقق من حالة سيارتك. جارٍ فتح صفحة التتبع.",
		"feedback":      "يسعدنا سماع رأيك. تم فتح نموذج التقييم.",
		"support":       "تم فتح نموذج الدعم. صف المشكلة وسيتواصل معك فريقنا.",
		"greeting":      "مرحباً! كيف يمكنني مساعدتك اليوم؟",
		keyRecommend:    "يبدو أن خدمة {service} مناسبة لك: {summary}.",
		keyAlternatives: " يمكنك أيضاً التفكير في {alternatives}.",
	},
}

// Reply returns the template stored under key for tag. A missing key yields the
// same language's default reply, never another language's.
func Reply(tag language.Tag, key string) string {
	set, ok := templates[tag]
	if !ok {
		set = templates[language.Default]
	}
	if text, ok := set[key]; ok && strings.TrimSpace(text) != "" {
		return text
	}
	return set[keyDefault]
}

// HasReply reports whether tag carries its own template for key.
func HasReply(tag language.Tag, key string) bool {
	_, ok := templates[tag][key]
	return ok
}

// Welcome is the greeting spoken the first time the assistant opens.
func Welcome(tag language.Tag) string {
	return Reply(tag, keyWelcome)
}
