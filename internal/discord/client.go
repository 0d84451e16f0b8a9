package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/report"
)

// sender subconjunto de discordgo.Session que usa el cliente
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Client struct {
	session *discordgo.Session
	sender  sender
	config  *Config
	logger  *zap.Logger
	now     func() time.Time
}

type Config struct {
	BotToken       string
	Channels       map[string]string // Map de área -> channel ID
	DefaultChannel string
	NotifyLevels   []string // Criticidades que se notifican
}

func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creando sesión Discord: %v", err)
	}

	c := newClient(session, config, logger)
	c.session = session
	return c, nil
}

func newClient(s sender, config *Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{sender: s, config: config, logger: logger, now: time.Now}
}

// NotifySaved envía la notificación del hallazgo guardado si su criticidad
// está entre las configuradas
func (c *Client) NotifySaved(_ context.Context, p *rca.Problem) error {
	crit := report.Criticality(p)
	if !c.shouldNotify(crit) {
		c.logger.Debug("Criticidad sin notificación", zap.String("id", p.ID), zap.String("criticidad", crit))
		return nil
	}
	_, err := c.SendFindingNotification(p)
	return err
}

// SendFindingNotification envía el hallazgo al canal de su área y devuelve el id del mensaje
func (c *Client) SendFindingNotification(p *rca.Problem) (string, error) {
	channelID, exists := c.GetChannelForArea(p.Area)
	if !exists {
		return "", fmt.Errorf("no se encontró canal para el área: %s", p.Area)
	}

	message, err := c.sender.ChannelMessageSendEmbed(channelID, c.buildFindingEmbed(p))
	if err != nil {
		return "", fmt.Errorf("error enviando mensaje a Discord: %v", err)
	}

	c.logger.Info("Hallazgo notificado en Discord", zap.String("id", p.ID), zap.String("channel", channelID))
	return message.ID, nil
}

// GetChannelForArea obtiene el canal del área (sin distinguir mayúsculas) o el canal por defecto
func (c *Client) GetChannelForArea(area string) (string, bool) {
	if channelID, ok := c.config.Channels[area]; ok {
		return channelID, true
	}
	for name, channelID := range c.config.Channels {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(area)) {
			return channelID, true
		}
	}
	if c.config.DefaultChannel != "" {
		return c.config.DefaultChannel, true
	}
	return "", false
}

func (c *Client) shouldNotify(criticidad string) bool {
	for _, level := range c.config.NotifyLevels {
		if strings.EqualFold(level, criticidad) {
			return true
		}
	}
	return false
}

// buildFindingEmbed construye el embed con información del hallazgo
func (c *Client) buildFindingEmbed(p *rca.Problem) *discordgo.MessageEmbed {
	crit := report.Criticality(p)

	// Determinar color según criticidad
	color := 0x3498DB // Azul por defecto
	switch crit {
	case string(rca.CriticalityHigh):
		color = 0xE74C3C // Rojo
	case string(rca.CriticalityMedium):
		color = 0xF39C12 // Naranja
	case string(rca.CriticalityLow):
		color = 0x2ECC71 // Verde
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Criticidad", Value: crit, Inline: true},
		{Name: "Área", Value: valueOrDash(p.Area), Inline: true},
		{Name: "Metodología", Value: valueOrDash(string(p.MetodologiaElegida)), Inline: true},
	}
	if p.Analisis != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Causa raíz", Value: truncate(p.Analisis.CausaRaiz, 1024)})
		if flags := report.HighESG(p.Analisis); len(flags) > 0 {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Riesgo ESG alto", Value: strings.Join(flags, ", "), Inline: true})
		}
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Acciones", Value: strconv.Itoa(len(p.PlanAccion)), Inline: true})

	return &discordgo.MessageEmbed{
		Title:       truncate(fmt.Sprintf("Hallazgo %s - %s", crit, valueOrDash(p.Area)), 256),
		Description: truncate(p.Problema, 2048),
		Color:       color,
		Fields:      fields,
		Timestamp:   c.now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "SIG RCA - Registro " + p.ID,
		},
	}
}

// Close cierra la conexión con Discord
func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
	}
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// truncate respeta el límite de caracteres de Discord sin cortar runas
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
