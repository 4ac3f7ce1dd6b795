package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReferral(t *testing.T) {
	text, html, err := RenderReferral(ReferralMailParams{
		RefereeName:  "Bob",
		ReferrerName: "Alice",
		CourseName:   "Full Stack with AI",
		BrandingName: "accredian",
	})
	require.NoError(t, err)

	assert.Contains(t, text, "Dear Bob,")
	assert.Contains(t, text, "Full Stack with AI")
	assert.Contains(t, text, "Alice")

	assert.Contains(t, html, "Dear Bob,")
	assert.Contains(t, html, "Full Stack with AI")
	assert.Contains(t, html, "accredian")
	assert.Contains(t, html, "<br>Alice")
}

func TestRenderReferral_EscapesHTML(t *testing.T) {
	_, html, err := RenderReferral(ReferralMailParams{
		RefereeName:  "<script>alert(1)</script>",
		ReferrerName: "Alice",
		CourseName:   "C",
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestNewReferralMessage(t *testing.T) {
	msg, err := NewReferralMessage("b@x.com", "a@x.com", ReferralMailParams{
		RefereeName:  "B",
		ReferrerName: "A",
		CourseName:   "C",
	})
	require.NoError(t, err)

	assert.Equal(t, "b@x.com", msg.To)
	assert.Equal(t, "a@x.com", msg.ReplyTo)
	assert.Equal(t, ReferralSubject, msg.Subject)
	assert.NotEmpty(t, msg.Text)
	assert.NotEmpty(t, msg.HTML)
}
