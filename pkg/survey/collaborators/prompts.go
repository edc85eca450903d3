package collaborators

import (
	"fmt"
	"strings"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const classifierSystemPrompt = `Anda adalah asisten survei. Tentukan maksud dari balasan responden terhadap pertanyaan survei yang sedang diajukan.
Kategori maksud:
- expected_answer: balasan menjawab pertanyaan
- unexpected_answer: balasan berupa jawaban tetapi tidak sesuai dengan pertanyaan atau pilihan
- question: responden mengajukan pertanyaan
- other: balasan lain yang tidak relevan
Balas hanya dengan objek JSON: {"intent": "...", "confidence": 0.0-1.0, "explanation": "...", "clarification_reason": "...", "follow_up_question": "..."}`

const extractorSystemPrompt = `Anda adalah asisten survei. Ambil nilai jawaban dari balasan responden.
Untuk pertanyaan pilihan, gunakan salah satu pilihan persis seperti tertulis. Untuk pilihan ganda, kembalikan array. Untuk angka, kembalikan angka.
Balas hanya dengan objek JSON: {"value": ..., "explanation": "..."}`

func describeQuestion(q types.RenderedQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kode pertanyaan: %s\n", q.Code)
	fmt.Fprintf(&b, "Jenis: %s\n", q.Kind)
	fmt.Fprintf(&b, "Pertanyaan: %s\n", q.Text)
	if len(q.Options) > 0 {
		b.WriteString("Pilihan:\n")
		for _, o := range q.Options {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if len(q.Guidelines) > 0 {
		b.WriteString("Panduan:\n")
		for _, g := range q.Guidelines {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}
	return b.String()
}

func buildPrompt(q types.RenderedQuestion, raw string) string {
	return describeQuestion(q) + "\nBalasan responden: " + raw
}
