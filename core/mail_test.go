package core_test

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/testutil"
)

var tmplFS = fstest.MapFS{
	"email/_base.txt":      {Data: []byte(`Hi {{.Data.Name}}, {{template "content" .}}`)},
	"email/_base.gohtml":   {Data: []byte(`<p>Hi {{.Data.Name}}</p>{{template "content" .}}`)},
	"email/welcome.txt":    {Data: []byte(`{{define "content"}}visit {{.FrontendBaseURL}}/{{.Data.Path}}{{end}}`)},
	"email/welcome.gohtml": {Data: []byte(`{{define "content"}}<a href="{{.FrontendBaseURL}}/{{.Data.Path}}">{{.Data.Label}}</a>{{end}}`)},
	"email/text_only.txt":  {Data: []byte(`{{define "content"}}plain{{end}}`)},
	"email/ignored.md":     {Data: []byte(`# nope`)},
}

func TestEmailMessage_Render(t *testing.T) {
	conf := testutil.NewConfig()
	core.ParseEmailTemplates(tmplFS, "email", conf, testutil.NewLogger(conf))
	to := []mail.Address{{Name: "Kevin", Address: "kevin@uni.ke"}}

	t.Run("text and html", func(t *testing.T) {
		msg := core.EmailMessage{To: to, TemplateName: "welcome", TemplateData: map[string]interface{}{
			"Name": "Kevin", "Path": "home", "Label": "<Home>",
		}}
		require.NoError(t, msg.Render())
		assert.Equal(t, "Hi Kevin, visit http://localhost:3000/home", msg.TextContent)
		assert.Equal(t, `<p>Hi Kevin</p><a href="http://localhost:3000/home">&lt;Home&gt;</a>`, msg.HTMLContent)
		assert.True(t, msg.HasRecipients())
		assert.True(t, msg.HasContent())
	})

	t.Run("text only", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "text_only", TemplateData: map[string]interface{}{"Name": "Kevin"}}
		require.NoError(t, msg.Render())
		assert.Equal(t, "Hi Kevin, plain", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
		assert.False(t, msg.HasRecipients())
	})

	t.Run("missing key", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "welcome", TemplateData: map[string]interface{}{"Name": "Kevin"}}
		assert.Error(t, msg.Render())
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "ignored"}
		assert.Error(t, msg.Render())
	})

	t.Run("body string", func(t *testing.T) {
		msg := core.EmailMessage{BodyStr: "raw body"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "raw body", msg.TextContent)
	})
}
