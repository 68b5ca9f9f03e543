// internal/workers/dialogue/route-message/format.go
package routemessage

import (
	"fmt"
	"strings"
	"time"

	"directory-assistant/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	replyUnknownCommand = "Comando no reconocido. Usa /help para ver los comandos disponibles."
	replySearchFailed   = "❌ Hubo un error al realizar la búsqueda. Por favor intenta nuevamente."
	replyProductsFailed = "❌ Error al buscar productos. Por favor intenta nuevamente."
	replyPricesFailed   = "❌ Error al comparar precios. Por favor intenta nuevamente."
	replyNearbyFailed   = "❌ Error al buscar negocios cercanos. Por favor intenta más tarde."
	replyCategoriesFail = "❌ Error al consultar las categorías. Por favor intenta más tarde."
	replyLeadFailed     = "❌ Hubo un error al procesar tu solicitud de registro. Por favor intenta nuevamente más tarde."
	replyReset          = "🧹 Listo, borré el historial de esta conversación. Empecemos de nuevo."

	replyMissingBusinessTerm = "❌ Por favor especifica qué negocio o categoría buscas.\n\nEjemplo: panadería o Ferretería La Unión"
	replyMissingProductTerm  = "❌ Por favor especifica qué producto buscas.\n\nEjemplo: vasos de plástico o café"
	replyMissingPriceTerm    = "❌ Por favor, dime qué producto quieres comparar."

	replyConsentUnclear = "❓ No pude entender tu respuesta sobre el consentimiento. " +
		"Por favor responde 'Sí, acepto' para continuar o 'No, gracias' para cancelar."
	replyConsentDeclined = "👍 Entendido, no guardaremos tus datos. Si cambias de opinión, solo dime que quieres registrarte."
	replyNameMissing     = "🙌 ¡Gracias por aceptar! ¿Cuál es tu nombre? Por ejemplo: 'Me llamo Ana Gómez, mi teléfono es 300 1234567'."

	tipSuggestions = "💡 Intenta con:\n• Otro término de búsqueda\n• Una categoría más general"

	timestampLayout = "02/01/2006 15:04:05"
	dateLayout      = "02/01/2006 15:04"
)

var pricePrinter = message.NewPrinter(language.Spanish)

var statusLabels = map[string]string{
	models.LeadStatusNew:       "Nuevo",
	models.LeadStatusContacted: "Contactado",
	models.LeadStatusQualified: "Calificado",
	models.LeadStatusConverted: "Convertido",
	models.LeadStatusLost:      "Perdido",
	models.LeadStatusArchived:  "Archivado",
}

func translateStatus(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

func formatPrice(price float64) string {
	return pricePrinter.Sprintf("$ %.2f", price)
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// productEmoji picks an icon from keywords in the product category.
func productEmoji(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "vaso"):
		return "🥤"
	case strings.Contains(c, "plato"):
		return "🍽️"
	case strings.Contains(c, "cubiert"):
		return "🍴"
	case strings.Contains(c, "bolsa"):
		return "🛍️"
	case strings.Contains(c, "contenedor"):
		return "🍱"
	case strings.Contains(c, "ropa"), strings.Contains(c, "camisa"), strings.Contains(c, "vestido"):
		return "👕"
	case strings.Contains(c, "zapato"):
		return "👟"
	case strings.Contains(c, "comida"), strings.Contains(c, "alimento"):
		return "🍔"
	case strings.Contains(c, "herramienta"):
		return "🔧"
	default:
		return "📦"
	}
}

func formatNoResults(query string) string {
	return fmt.Sprintf("❌ No encontré resultados para '%s'.\n\n%s\n• Ampliar el radio de búsqueda", query, tipSuggestions)
}

// formatSearchResult renders at most maxInternal and maxExternal rows, each
// section labelled by where it came from.
func formatSearchResult(query string, result *models.SearchResult, maxInternal, maxExternal int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Resultados para \"%s\":\n\n", query)

	n := 0
	if len(result.Internal) > 0 {
		b.WriteString("📍 CERCA DE TI (base interna):\n")
		for i, biz := range result.Internal {
			if i >= maxInternal {
				break
			}
			n++
			fmt.Fprintf(&b, "%d. %s", n, biz.Name)
			if biz.DistanceMeters != nil {
				fmt.Fprintf(&b, " (%s)", formatDistance(*biz.DistanceMeters))
			}
			b.WriteString("\n")
			if biz.Category != "" {
				fmt.Fprintf(&b, "   📂 %s\n", biz.Category)
			}
			if biz.Phone != "" {
				fmt.Fprintf(&b, "   📞 %s\n", biz.Phone)
			}
			b.WriteString("\n")
		}
	}

	if len(result.External) > 0 {
		b.WriteString("🌐 OTROS PROVEEDORES (web - Google Places):\n")
		for i, e := range result.External {
			if i >= maxExternal {
				break
			}
			n++
			fmt.Fprintf(&b, "%d. %s\n", n, e.BusinessName)
			if e.Category != "" {
				fmt.Fprintf(&b, "   📂 %s\n", e.Category)
			}
			if e.Address != "" {
				fmt.Fprintf(&b, "   📍 %s\n", e.Address)
			}
			if e.Rating != nil {
				fmt.Fprintf(&b, "   ⭐ %.1f\n", *e.Rating)
			}
			fmt.Fprintf(&b, "   🌐 Fuente: %s\n", orDefault(e.Source, "Web"))
			if !e.FetchedAt.IsZero() {
				fmt.Fprintf(&b, "   🕐 Última actualización: %s\n", e.FetchedAt.Format(dateLayout))
			}
			b.WriteString("\n")
		}
	}

	switch result.Source {
	case models.SourceInternal:
		b.WriteString("✅ Todos los resultados provienen de nuestra base de datos interna.")
	case models.SourceExternal:
		b.WriteString("🌐 Todos los resultados provienen de fuentes web externas.")
	default:
		b.WriteString("🔄 Resultados combinados de nuestra base interna y fuentes web externas.")
	}
	return b.String()
}

func formatProducts(term string, products []models.Product, max int) string {
	var b strings.Builder
	plural := "s"
	if len(products) == 1 {
		plural = ""
	}
	fmt.Fprintf(&b, "🔍 Encontré %d producto%s con \"%s\":\n\n", len(products), plural, term)

	for i, p := range products {
		if i >= max {
			fmt.Fprintf(&b, "... y %d más. Refina tu búsqueda para ver otros resultados.\n\n", len(products)-max)
			break
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, productEmoji(p.Category), p.Name)
		fmt.Fprintf(&b, "   💰 %s", formatPrice(p.Price))
		if p.Unit != "" {
			fmt.Fprintf(&b, " / %s", p.Unit)
		}
		if p.Category != "" {
			fmt.Fprintf(&b, " | 📂 %s", p.Category)
		}
		b.WriteString("\n")
		if p.SupplierName != "" {
			fmt.Fprintf(&b, "   🏪 %s\n", p.SupplierName)
		}
		b.WriteString("\n")
	}

	b.WriteString("💡 Tip: Contacta directamente al negocio para más información.")
	return b.String()
}

func formatPriceComparison(term string, prices []models.SupplierPrice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚖️ Comparativa de precios para '%s':\n\n", term)
	for i, p := range prices {
		fmt.Fprintf(&b, "%d. %s - %s", i+1, p.SupplierName, formatPrice(p.Price))
		if p.ProductName != "" && !strings.EqualFold(p.ProductName, term) {
			fmt.Fprintf(&b, " (%s)", p.ProductName)
		}
		b.WriteString("\n")
		if p.Phone != "" {
			fmt.Fprintf(&b, "   📞 %s\n", p.Phone)
		}
	}
	if len(prices) > 1 {
		fmt.Fprintf(&b, "\n🏆 Mejor precio: %s", prices[0].SupplierName)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatNearby(businesses []models.Business, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 Encontré %d negocio(s) cercanos\n\n", len(businesses))
	fmt.Fprintf(&b, "📍 Radio de búsqueda: %s\n\n", formatDistance(float64(radius)))

	for i, biz := range businesses {
		fmt.Fprintf(&b, "%d. 🏪 %s\n", i+1, biz.Name)
		if biz.DistanceMeters != nil {
			fmt.Fprintf(&b, "   📏 %s\n", formatDistance(*biz.DistanceMeters))
		}
		if biz.Address != "" {
			fmt.Fprintf(&b, "   📍 %s\n", biz.Address)
		}
		if biz.Phone != "" {
			fmt.Fprintf(&b, "   📞 %s\n", biz.Phone)
		}
		if biz.WhatsApp != "" {
			fmt.Fprintf(&b, "   💬 WhatsApp: %s\n", biz.WhatsApp)
		}
		if biz.Category != "" {
			fmt.Fprintf(&b, "   🏷️ Categoría: %s\n", biz.Category)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCategories(categories []models.CategoryCount) string {
	var b strings.Builder
	b.WriteString("🏷️ Categorías de negocios disponibles:\n\n")
	for i, c := range categories {
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, c.Category, c.Count)
	}
	b.WriteString("\n💡 Usa /cerca o preguntas naturales para buscar por estas categorías.")
	return b.String()
}

func formatStart(userName string) string {
	greeting := "¡Bienvenido a Alexia! 🤖"
	if userName != "" {
		greeting = fmt.Sprintf("¡Hola %s! Bienvenido a Alexia 🤖", userName)
	}
	return greeting + "\n\n" +
		"Soy tu asistente para encontrar negocios, productos y servicios locales.\n\n" +
		"Usa /help para ver los comandos disponibles."
}

func formatHelp() string {
	return "🤖 Comandos disponibles:\n\n" +
		"/start - Inicia el bot\n" +
		"/help - Muestra esta ayuda\n" +
		"/status - Muestra el estado del bot\n" +
		"/cerca - Busca negocios cercanos\n" +
		"/categorias - Muestra categorías de negocios\n" +
		"/reset - Borra el historial de la conversación\n\n" +
		"También puedes hacer preguntas naturales como:\n" +
		"• \"¿Dónde hay una panadería cerca?\"\n" +
		"• \"¿Quién vende vasos más barato?\"\n" +
		"• \"Quiero registrarme como cliente\""
}

func formatStatus(messages, commands int64, active int, now time.Time, statsOK bool) string {
	var b strings.Builder
	b.WriteString("✅ Bot activo y funcionando\n\n📊 Estadísticas:\n")
	if statsOK {
		fmt.Fprintf(&b, "• Mensajes procesados: %d\n", messages)
		fmt.Fprintf(&b, "• Comandos ejecutados: %d\n", commands)
	} else {
		b.WriteString("• Estadísticas del historial no disponibles\n")
	}
	fmt.Fprintf(&b, "• Conversaciones activas: %d\n", active)
	fmt.Fprintf(&b, "• Última actualización: %s", now.Format(timestampLayout))
	return b.String()
}

func formatExistingLead(lead *models.Lead) string {
	consent := "Pendiente ⚠️"
	if lead.ConsentGiven {
		consent = "Otorgado ✓"
	}
	return fmt.Sprintf(
		"👋 ¡Hola de nuevo %s! Ya tienes un registro con nosotros.\n\n"+
			"📊 Estado actual: %s\n"+
			"📞 Teléfono: %s\n"+
			"📧 Email: %s\n"+
			"✅ Consentimiento: %s\n\n"+
			"💡 Si necesitas actualizar tu información, puedes decir:\n"+
			"• 'Actualizar mi teléfono a +57 300 1234567'\n"+
			"• 'Cambiar mi email a ejemplo@correo.com'\n"+
			"• 'Agregar mi ciudad: Bogotá'",
		lead.FirstName,
		translateStatus(lead.Status),
		orDefault(lead.Phone, "No registrado"),
		orDefault(lead.Email, "No registrado"),
		consent,
	)
}

func formatConsentRequest(userName string) string {
	name := ""
	if userName != "" {
		name = " " + userName
	}
	return fmt.Sprintf(
		"👋 ¡Hola%s! Para brindarte el mejor servicio y mantenerte informado sobre productos y negocios que te interesan, necesitamos tu consentimiento.\n\n"+
			"✅ ¿Estás de acuerdo con que almacenemos tu información de contacto para:\n"+
			"• Enviarte recomendaciones personalizadas\n"+
			"• Informarte sobre nuevos productos y negocios\n"+
			"• Contactarte para ofertas especiales?\n\n"+
			"Responde 'Sí, acepto' junto con tu nombre y un teléfono o email, o 'No, gracias' para cancelar.\n\n"+
			"🔒 Cumplimos con la ley de protección de datos personales para proteger tu privacidad.",
		name,
	)
}

func formatLeadCaptured(lead *models.Lead) string {
	consentDate := ""
	if lead.ConsentDate != nil {
		consentDate = lead.ConsentDate.Format(dateLayout)
	}
	return fmt.Sprintf(
		"🎉 ¡Perfecto %s! Hemos registrado tu información.\n\n"+
			"📋 Resumen de tu registro:\n"+
			"👤 Nombre: %s\n"+
			"📞 Teléfono: %s\n"+
			"📧 Email: %s\n"+
			"🏙️ Ciudad: %s\n"+
			"✅ Consentimiento: Otorgado\n"+
			"📅 Fecha: %s\n\n"+
			"💡 Ahora recibirás recomendaciones personalizadas y ofertas especiales. ¡Gracias por confiar en nosotros!",
		lead.FirstName,
		lead.FullName(),
		orDefault(lead.Phone, "No proporcionado"),
		orDefault(lead.Email, "No proporcionado"),
		orDefault(lead.City, "No proporcionada"),
		consentDate,
	)
}

// formatValidationPrompt asks the user to fix the field named by a lead
// validation failure.
func formatValidationPrompt(field, rule string, lead *models.Lead) string {
	switch {
	case field == "contact":
		return "📞 Necesito al menos un teléfono o un email para registrarte. ¿Me compartes alguno?"
	case field == "phone":
		return fmt.Sprintf("📞 El teléfono '%s' no parece válido. Usa solo números, espacios o guiones, por ejemplo +57 300 1234567.", lead.Phone)
	case field == "email":
		return fmt.Sprintf("📧 El email '%s' no parece válido. Revisa que tenga el formato nombre@dominio.com.", lead.Email)
	case field == "firstName" || field == "lastName":
		return "👤 Tu nombre solo puede tener letras, espacios, apóstrofes o guiones (de 2 a 100 caracteres). ¿Cómo te llamas?"
	case field == "city":
		return "🏙️ El nombre de la ciudad es demasiado largo. ¿Puedes escribirlo de nuevo?"
	case rule == "consent":
		return replyConsentUnclear
	default:
		return fmt.Sprintf("⚠️ No pude validar el dato '%s'. ¿Puedes revisarlo y enviarlo de nuevo?", field)
	}
}
