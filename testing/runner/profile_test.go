package runner

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/testdriver/testing/poll"
)

func TestBuiltInProfiles(t *testing.T) {
	tests := []struct {
		name      string
		profile   Profile
		wantPorts []int
		wantCmd   string
		marker    string
	}{
		{
			name:      "server",
			profile:   Server(),
			wantPorts: []int{8000, 8001},
			wantCmd:   "python",
			marker:    "Tornado-powered Django web server",
		},
		{
			name:      "webhook",
			profile:   WebhookReceiver(),
			wantPorts: []int{8040, 8041},
			wantCmd:   "python",
			marker:    "Started webhook receiver server",
		},
		{
			name:      "amqp",
			profile:   AMQPConsumer(),
			wantPorts: []int{5672, 8000, 8001},
			wantCmd:   "python",
			marker:    "Starting a Tornado-powered Django AMQP consumer",
		},
		{
			name:      "k8s",
			profile:   K8sReceiver(),
			wantPorts: []int{8072},
			wantCmd:   "receiver",
			marker:    "Started K8s server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Check(t, cmp.Equal(tt.profile.Name, tt.name))
			assert.Check(t, cmp.DeepEqual(tt.profile.Ports, tt.wantPorts))
			assert.Check(t, cmp.Equal(tt.profile.Command[0], tt.wantCmd))
			assert.Check(t, cmp.Equal(tt.profile.Marker, tt.marker))
			assert.Check(t, cmp.Equal(tt.profile.Probe, poll.LocalPolicy()))

			byName, ok := ProfileByName(tt.name)
			assert.Check(t, ok)
			assert.Check(t, cmp.DeepEqual(byName, tt.profile, cmpopts.EquateEmpty()))
		})
	}

	_, ok := ProfileByName("nope")
	assert.Check(t, !ok)
}

func TestProfiles_AreIndependent(t *testing.T) {
	a := Server()
	a.Ports[0] = 1
	a.Command[0] = "python3"

	b := Server()
	assert.Check(t, cmp.Equal(b.Ports[0], 8000))
	assert.Check(t, cmp.Equal(b.Command[0], "python"))
}

func TestProfile_WithDefaults(t *testing.T) {
	p := Profile{Ports: []int{1}}.withDefaults()
	assert.Check(t, cmp.Equal(p.Probe, poll.LocalPolicy()))
	assert.Check(t, cmp.Equal(p.ReadTimeout, time.Second))
	assert.Check(t, cmp.Equal(p.QuietPeriod, 500*time.Millisecond))
	assert.Check(t, cmp.Equal(p.StopTimeout, 10*time.Second))
	assert.Check(t, cmp.Equal(p.DefaultPort, 8000))
	assert.Check(t, cmp.Equal(p.DefaultProbePort, 8001))

	k := K8sReceiver().withDefaults()
	assert.Check(t, cmp.Equal(k.DefaultPort, 8072))
}

func TestGoService(t *testing.T) {
	p := GoService("svc", "/tmp/svc", "listening", "/tmp/cover.out", 9000)
	assert.Check(t, cmp.DeepEqual(p.Command, []string{"/tmp/svc"}))
	assert.Check(t, cmp.DeepEqual(p.CoverageCommand, []string{
		"/tmp/svc", "-test.run", "^TestRunMain$", "-test.coverprofile", "/tmp/cover.out", "--",
	}))
	assert.Check(t, cmp.DeepEqual(p.Ports, []int{9000}))
}
