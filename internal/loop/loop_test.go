package loop

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jrana/ibvs/internal/camera"
	"github.com/jrana/ibvs/internal/servo"
)

// A square of four points facing the camera.
var squareScene = []camera.Vec3{
	{X: -0.5, Y: -0.5, Z: 3},
	{X: 0.5, Y: -0.5, Z: 3},
	{X: 0.5, Y: 0.5, Z: 3},
	{X: -0.5, Y: 0.5, Z: 3},
}

var targetPose = camera.Pose{Z: 1}

func newLoop(mode servo.ControlMode, interaction servo.InteractionMode, start camera.Pose) *Loop {
	ctrl, err := servo.New(mode, interaction, len(squareScene))
	Expect(err).NotTo(HaveOccurred())

	gains := make([]float64, ctrl.DOF())
	for i := range gains {
		gains[i] = 1.0
	}
	Expect(ctrl.SetGains(gains)).To(Succeed())

	l, err := New(ctrl, camera.New(start), squareScene, targetPose)
	Expect(err).NotTo(HaveOccurred())
	return l
}

var _ = Describe("Loop", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = Config{Dt: 0.05, MaxIters: 3000, Tolerance: 0.01}
	})

	It("converges a translational offset under 2xz", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, camera.Pose{X: 0.3})

		result, err := l.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Converged).To(BeTrue())

		final := result.Poses[len(result.Poses)-1]
		Expect(final.X).To(BeNumerically("~", targetPose.X, 0.05))
		Expect(final.Z).To(BeNumerically("~", targetPose.Z, 0.05))
	})

	It("converges a full 4xyzy offset", func() {
		l := newLoop(servo.ModeXYZY, servo.InteractionCurrent, camera.Pose{X: 0.2, Y: -0.1, Z: 0.4, Yaw: 0.05})

		result, err := l.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Converged).To(BeTrue())

		final := result.Poses[len(result.Poses)-1]
		Expect(final.X).To(BeNumerically("~", targetPose.X, 0.05))
		Expect(final.Y).To(BeNumerically("~", targetPose.Y, 0.05))
		Expect(final.Z).To(BeNumerically("~", targetPose.Z, 0.05))
		Expect(final.Yaw).To(BeNumerically("~", targetPose.Yaw, 0.05))
	})

	It("converges with the mean interaction estimate", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionMean, camera.Pose{X: 0.2, Z: 0.5})

		result, err := l.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Converged).To(BeTrue())
	})

	It("stays put when starting at the target", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, targetPose)

		result, err := l.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Converged).To(BeTrue())
		Expect(result.Iterations).To(Equal(1))
		for _, v := range result.Velocities[0] {
			Expect(v).To(BeNumerically("~", 0, 1e-12))
		}
	})

	It("shrinks the error norm monotonically early in the run", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, camera.Pose{X: 0.3})

		result, err := l.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(result.ErrorNorms)).To(BeNumerically(">", 10))
		for i := 1; i < 10; i++ {
			Expect(result.ErrorNorms[i]).To(BeNumerically("<", result.ErrorNorms[i-1]))
		}
	})

	It("collects metrics over the run", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, camera.Pose{X: 0.3})
		l.AddMetric(NewControlEffort())
		l.AddMetric(NewSettlingIterations(cfg.Tolerance))

		result, err := l.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Metrics).To(HaveKey("control_effort"))
		Expect(result.Metrics["control_effort"]).To(BeNumerically(">", 0))
		Expect(result.Metrics["settling_iterations"]).To(BeNumerically(">=", 0))
	})

	It("stops on context cancellation", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, camera.Pose{X: 0.3})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := l.Run(ctx, cfg)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("rejects a non-positive timestep", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, camera.Pose{X: 0.3})

		_, err := l.Run(context.Background(), Config{Dt: 0, MaxIters: 10})
		Expect(err).To(HaveOccurred())
		_, err = l.Run(context.Background(), Config{Dt: 0.05, MaxIters: 0})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a scene that does not match the controller", func() {
		ctrl, err := servo.New(servo.ModeXZ, servo.InteractionCurrent, 2)
		Expect(err).NotTo(HaveOccurred())
		_, err = New(ctrl, camera.New(camera.Pose{}), squareScene, targetPose)
		Expect(err).To(HaveOccurred())
	})

	It("hands every iteration to the callback", func() {
		l := newLoop(servo.ModeXZ, servo.InteractionCurrent, camera.Pose{X: 0.3})

		count := 0
		err := l.RunWithCallback(context.Background(), Config{Dt: 0.05, MaxIters: 20}, func(pose camera.Pose, vels []float64, errNorm float64, t float64) bool {
			count++
			return count < 5
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(5))
	})
})
