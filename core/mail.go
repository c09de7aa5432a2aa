package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"io/ioutil"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	appfs "github.com/Jati804/internal-web-sanur-akademi-sub000/fs"
)

var (
	templates tmplCache
	tmplMu    sync.RWMutex
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData(conf *Config) ContextData {
	return ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	tmplMu.RLock()
	defer tmplMu.RUnlock()

	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "base", m.getContextData(conf)); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(conf *Config) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "base", m.getContextData(conf)); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render(conf *Config) error {
	if err := m.renderText(conf); err != nil {
		return err
	}
	return m.renderHTML(conf)
}

// Attach reads r and adds it as a base64 encoded attachment.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return err
	}
	if err = encoder.Close(); err != nil {
		return err
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates.
// Every template <name>.txt|.gohtml is parsed along with its _base file.
func ParseEmailTemplates(logger Logger) {
	cache := make(tmplCache)

	dir := path.Join("templates", "email")
	entries, err := fs.ReadDir(appfs.FS, dir)
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}

	for _, e := range entries {
		fname := e.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			cache[name] = entry
		}

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(dir, "_base.txt"), path.Join(dir, fname))
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
				continue
			}
			entry[ext] = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(dir, "_base.gohtml"), path.Join(dir, fname))
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
				continue
			}
			entry[ext] = tmpl.Option("missingkey=error")
		}
	}

	tmplMu.Lock()
	templates = cache
	tmplMu.Unlock()
}
