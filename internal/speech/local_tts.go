package speech

import (
	"context"
	"os/exec"
	"strings"
)

// слегка сниженный темп против дефолтных 175 wpm
const localSpeechRate = "150"

// EspeakPlayer — локальная озвучка через espeak-ng. Голос выбирается
// по подстроке "female" в имени, иначе дефолтный голос платформы.
type EspeakPlayer struct {
	binary string
}

func NewEspeakPlayer() *EspeakPlayer {
	for _, bin := range []string{"espeak-ng", "espeak"} {
		if _, err := exec.LookPath(bin); err == nil {
			return &EspeakPlayer{binary: bin}
		}
	}
	return &EspeakPlayer{}
}

func (p *EspeakPlayer) Available() bool { return p.binary != "" }

func (p *EspeakPlayer) Speak(ctx context.Context, text string) error {
	args := []string{"-s", localSpeechRate}
	if v := p.femaleVoice(ctx); v != "" {
		args = append(args, "-v", v)
	}
	args = append(args, text)

	return exec.CommandContext(ctx, p.binary, args...).Run()
}

// femaleVoice сканирует `espeak-ng --voices` и берёт первый голос,
// в имени которого встречается "female". Пусто — берём дефолт.
func (p *EspeakPlayer) femaleVoice(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, p.binary, "--voices").Output()
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		name := fields[3]
		if strings.Contains(strings.ToLower(name), "female") {
			return name
		}
	}
	return ""
}
